package model

// ProductRef identifies the ordered product. ID is zero when the event did
// not carry one.
type ProductRef struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Group string `json:"group,omitempty"`
}

// Tier is one row of the static tier table.
type Tier struct {
	ProductID    int    `json:"product_id,omitempty" yaml:"product_id"`
	Name         string `json:"name" yaml:"name"`
	DisplayName  string `json:"display_name" yaml:"display_name"`
	ConfigScript string `json:"config_script,omitempty" yaml:"config_script"`
}

// HasScript reports whether the tier needs a configuration command.
func (t Tier) HasScript() bool {
	return t.ConfigScript != ""
}

// Label returns the display name, falling back to the match name.
func (t Tier) Label() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Name
}
