package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rservers/RightClaw-Build/internal/model"
)

// FlexInt accepts a JSON number or a numeric string. PHP encodes module
// params either way depending on where WHMCS read them from.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("not an integer: %q", s)
		}
		*f = FlexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("not an integer: %s", n)
	}
	*f = FlexInt(i)
	return nil
}

// Product is params.product. An empty PHP array arrives as [] and decodes
// to the zero value.
type Product struct {
	Name      string `json:"name"`
	GroupName string `json:"groupname"`
}

func (p *Product) UnmarshalJSON(b []byte) error {
	if isJSONArray(b) {
		*p = Product{}
		return nil
	}
	type plain Product
	return json.Unmarshal(b, (*plain)(p))
}

// ConfigOptions is params.configoptions; only the name option is read.
type ConfigOptions struct {
	Name string `json:"name"`
}

func (c *ConfigOptions) UnmarshalJSON(b []byte) error {
	if isJSONArray(b) {
		*c = ConfigOptions{}
		return nil
	}
	type plain ConfigOptions
	return json.Unmarshal(b, (*plain)(c))
}

// LifecycleEvent is the body the billing hook forwards: the WHMCS module
// params of AfterModuleCreate, AfterModuleSuspend or AfterModuleUnsuspend.
// Unknown fields are ignored.
type LifecycleEvent struct {
	ServiceID     FlexInt       `json:"serviceid" validate:"required,gt=0"`
	ProductID     FlexInt       `json:"pid"`
	PackageID     FlexInt       `json:"packageid"`
	Product       Product       `json:"product"`
	ConfigOptions ConfigOptions `json:"configoptions"`
	DedicatedIP   string        `json:"dedicatedip" validate:"max=255"`
	Domain        string        `json:"domain" validate:"max=255"`
	Password      string        `json:"password"`
}

// ToModel maps the request onto the event the workflows consume. raw is
// attached only when the caller wants it dumped.
func (e LifecycleEvent) ToModel(kind model.EventKind, raw []byte) model.LifecycleEvent {
	pid := int(e.ProductID)
	if pid == 0 {
		pid = int(e.PackageID)
	}
	return model.LifecycleEvent{
		Kind:        kind,
		ServiceID:   int(e.ServiceID),
		ProductID:   pid,
		OptionName:  strings.TrimSpace(e.ConfigOptions.Name),
		ProductName: strings.TrimSpace(e.Product.Name),
		GroupName:   strings.TrimSpace(e.Product.GroupName),
		DedicatedIP: strings.TrimSpace(e.DedicatedIP),
		Domain:      strings.TrimSpace(e.Domain),
		Password:    e.Password,
		Raw:         raw,
	}
}

func isJSONArray(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '['
}
