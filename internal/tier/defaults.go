package tier

import "github.com/rservers/RightClaw-Build/internal/model"

// DefaultProductGroup is the billing product group for RightClaw VPS plans.
const DefaultProductGroup = "Rightclaw"

// DefaultTiers is the built-in table used when no tier file is configured.
func DefaultTiers() []model.Tier {
	return []model.Tier{
		{Name: "Rightclaw Basic", DisplayName: "Basic"},
		{Name: "Rightclaw Pro", DisplayName: "Pro", ConfigScript: "/opt/rightservers/scripts/upgrade-pro.sh"},
		{Name: "Rightclaw Enterprise", DisplayName: "Enterprise", ConfigScript: "/opt/rightservers/scripts/upgrade-enterprise.sh"},
	}
}
