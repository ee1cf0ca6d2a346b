// Package tier maps an ordered product to its RightClaw configuration tier.
package tier

import (
	"strings"

	"github.com/rservers/RightClaw-Build/internal/model"
)

// Resolver holds the immutable tier table and the optional product group
// used for the coarse name pre-check.
type Resolver struct {
	tiers  []model.Tier
	group  string
	hasIDs bool
}

// NewResolver builds a Resolver. The table order is the match order for
// name-based resolution.
func NewResolver(tiers []model.Tier, productGroup string) *Resolver {
	r := &Resolver{
		tiers: append([]model.Tier(nil), tiers...),
		group: strings.ToLower(strings.TrimSpace(productGroup)),
	}
	for _, t := range r.tiers {
		if t.ProductID != 0 {
			r.hasIDs = true
			break
		}
	}
	return r
}

// Resolve returns the tier for ref. The boolean is false when the product is
// not one of ours.
//
// When the ref carries an id and the table declares ids, an exact id match
// wins. Failing that, only rows without an id are name-matched: a product
// name such as "Enterprise Plus" must never override a row whose id differs.
// Tables or events without ids fall back to name matching over every row.
func (r *Resolver) Resolve(ref model.ProductRef) (model.Tier, bool) {
	if ref.ID != 0 && r.hasIDs {
		for _, t := range r.tiers {
			if t.ProductID == ref.ID {
				return t, true
			}
		}
		return r.resolveByName(ref, true)
	}
	return r.resolveByName(ref, false)
}

func (r *Resolver) resolveByName(ref model.ProductRef, idlessOnly bool) (model.Tier, bool) {
	name := strings.ToLower(strings.TrimSpace(ref.Name))
	if name == "" {
		return model.Tier{}, false
	}
	if r.group != "" &&
		!strings.Contains(strings.ToLower(ref.Group), r.group) &&
		!strings.Contains(name, r.group) {
		return model.Tier{}, false
	}
	for _, t := range r.tiers {
		if idlessOnly && t.ProductID != 0 {
			continue
		}
		match := strings.ToLower(strings.TrimSpace(t.Name))
		if match != "" && strings.Contains(name, match) {
			return t, true
		}
	}
	return model.Tier{}, false
}
