package model

import (
	"strconv"
	"strings"
)

// EventKind identifies which billing lifecycle hook produced an event.
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventSuspended   EventKind = "suspended"
	EventUnsuspended EventKind = "unsuspended"
)

// ParseEventKind maps a URL path segment to an EventKind.
func ParseEventKind(s string) (EventKind, bool) {
	switch k := EventKind(strings.ToLower(s)); k {
	case EventCreated, EventSuspended, EventUnsuspended:
		return k, true
	}
	return "", false
}

// LifecycleEvent carries the billing module parameters the workflows read.
// Everything except ServiceID may be missing from a given hook invocation.
type LifecycleEvent struct {
	Kind      EventKind `json:"kind"`
	ServiceID int       `json:"service_id"`
	ProductID int       `json:"product_id,omitempty"`
	// OptionName is configoptions.name, preferred over ProductName.
	OptionName  string `json:"option_name,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	GroupName   string `json:"group_name,omitempty"`
	// DedicatedIP is the assigned address; Domain is the legacy fallback.
	DedicatedIP string `json:"dedicated_ip,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Password    string `json:"password,omitempty"`
	// Raw is the undecoded request body, kept for the debug dump.
	Raw []byte `json:"raw,omitempty"`
}

// ServiceKey is the correlation key used for every log record of this event.
func (e LifecycleEvent) ServiceKey() string {
	return strconv.Itoa(e.ServiceID)
}

// Ref builds the product reference used for tier resolution.
func (e LifecycleEvent) Ref() ProductRef {
	name := strings.TrimSpace(e.OptionName)
	if name == "" {
		name = strings.TrimSpace(e.ProductName)
	}
	return ProductRef{
		ID:    e.ProductID,
		Name:  name,
		Group: strings.TrimSpace(e.GroupName),
	}
}
