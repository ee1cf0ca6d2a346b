// Package locator decides which network address a lifecycle event targets.
package locator

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rservers/RightClaw-Build/internal/inventory"
	"github.com/rservers/RightClaw-Build/internal/model"
)

// ErrAddressUnresolved is returned when no source yields an address.
var ErrAddressUnresolved = errors.New("instance address unresolved")

// Address sources, in resolution order.
const (
	SourcePayload          = "payload"
	SourcePayloadSecondary = "payload-secondary"
	SourceInventory        = "inventory"
)

// Inventory answers address lookups by service id. *inventory.Store
// satisfies it.
type Inventory interface {
	AddressForService(ctx context.Context, serviceID int) (string, bool, error)
}

// Location is a resolved address and where it came from.
type Location struct {
	Address string `json:"address"`
	Source  string `json:"source"`
}

// Locator resolves addresses from the event payload and falls back to the
// fleet inventory.
type Locator struct {
	inventory Inventory
	logger    zerolog.Logger
}

// New creates a Locator. inv may be nil when no inventory is configured.
func New(inv Inventory, logger zerolog.Logger) *Locator {
	return &Locator{
		inventory: inv,
		logger:    logger.With().Str("component", "locator").Logger(),
	}
}

// Locate tries the dedicated IP, then the legacy domain field, then the
// inventory. Inventory failures are logged and count as no answer.
func (l *Locator) Locate(ctx context.Context, event model.LifecycleEvent) (Location, error) {
	if addr := inventory.NormalizeAddress(event.DedicatedIP); addr != "" {
		return Location{Address: addr, Source: SourcePayload}, nil
	}
	if addr := inventory.NormalizeAddress(event.Domain); addr != "" && !strings.ContainsAny(addr, " /") {
		return Location{Address: addr, Source: SourcePayloadSecondary}, nil
	}

	if l.inventory == nil || event.ServiceID == 0 {
		return Location{}, ErrAddressUnresolved
	}

	addr, found, err := l.inventory.AddressForService(ctx, event.ServiceID)
	if err != nil {
		l.logger.Warn().Err(err).Int("service_id", event.ServiceID).Msg("inventory lookup failed")
		return Location{}, ErrAddressUnresolved
	}
	if !found || addr == "" {
		return Location{}, ErrAddressUnresolved
	}

	l.logger.Info().Int("service_id", event.ServiceID).Str("address", addr).Msg("address resolved from inventory")
	return Location{Address: addr, Source: SourceInventory}, nil
}
