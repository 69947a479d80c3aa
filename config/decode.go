package config

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/viam-labs/superquadric-model/utils"
)

// onOffHookFunc lets boolean fields be written as "on" and "off".
func onOffHookFunc() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.Bool {
			return data, nil
		}
		b, ok := utils.OnOff(data)
		if !ok {
			return nil, errors.Errorf("cannot use %v as a switch", data)
		}
		return b, nil
	}
}

// durationHookFunc accepts "250ms" style strings, or plain numbers as milliseconds.
func durationHookFunc() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		if s, ok := data.(string); ok {
			return time.ParseDuration(s)
		}
		ms, err := cast.ToFloat64E(data)
		if err != nil {
			return nil, err
		}
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
}

func decode(raw map[string]interface{}, into interface{}) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           into,
		Metadata:         &md,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			onOffHookFunc(),
			durationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "cannot decode config")
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}

// DecodeAttributes applies a partial update onto the struct pointed to by into. Only keys present
// in attrs are touched. Unknown keys are returned rather than treated as errors. Switch values
// that are neither on nor off go through checker, so they turn off under the reset policy and are
// recorded as errors under the reject policy.
func DecodeAttributes(attrs utils.AttributeMap, into interface{}, checker *utils.ParamChecker) ([]string, error) {
	switches := switchFields(into)
	normalized := make(utils.AttributeMap, len(attrs))
	for _, name := range attrs.Keys() {
		v := attrs[name]
		if switches[name] {
			v = checker.Switch(name, v, false)
		}
		normalized[name] = v
	}
	if err := checker.Err(); err != nil {
		return nil, err
	}
	return decode(normalized, into)
}

// switchFields returns the json names of the boolean fields of the struct into points to.
func switchFields(into interface{}) map[string]bool {
	t := reflect.TypeOf(into)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	fields := map[string]bool{}
	if t.Kind() != reflect.Struct {
		return fields
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type.Kind() != reflect.Bool {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" {
			name = f.Name
		}
		fields[name] = true
	}
	return fields
}
