package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rservers/RightClaw-Build/internal/model"
)

// TierFile is the on-disk shape of TIER_TABLE_PATH.
//
//	product_group: Rightclaw
//	tiers:
//	  - product_id: 156
//	    name: Rightclaw Pro
//	    display_name: Pro
//	    config_script: /opt/rightservers/scripts/upgrade-pro.sh
type TierFile struct {
	ProductGroup string       `yaml:"product_group"`
	Tiers        []model.Tier `yaml:"tiers"`
}

// LoadTierFile reads and validates a tier table. Declaration order is kept
// because name matching is first-match-wins.
func LoadTierFile(path string) (*TierFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier table: %w", err)
	}

	var table TierFile
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse tier table %s: %w", path, err)
	}
	if len(table.Tiers) == 0 {
		return nil, fmt.Errorf("tier table %s declares no tiers", path)
	}

	seen := make(map[int]string)
	for i, t := range table.Tiers {
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("tier table %s: entry %d has no name", path, i)
		}
		if t.ProductID == 0 {
			continue
		}
		if prev, ok := seen[t.ProductID]; ok {
			return nil, fmt.Errorf("tier table %s: product_id %d used by %q and %q", path, t.ProductID, prev, t.Name)
		}
		seen[t.ProductID] = t.Name
	}

	return &table, nil
}
