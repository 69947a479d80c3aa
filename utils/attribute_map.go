package utils

import (
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// AttributeMap is a loosely typed set of named values, as received from a configuration
// request. Only present keys are meant to be applied.
type AttributeMap map[string]interface{}

// Keys returns the keys in sorted order.
func (am AttributeMap) Keys() []string {
	keys := lo.Keys(am)
	sort.Strings(keys)
	return keys
}

// OnOff interprets a switch value: "on"/"off", "true"/"false" or a real bool.
func OnOff(v interface{}) (bool, bool) {
	if s, ok := v.(string); ok {
		switch s {
		case "on":
			return true, true
		case "off":
			return false, true
		}
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, false
	}
	return b, true
}
