package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/viam-labs/superquadric-model/logging"
)

// ValidationPolicy decides what happens to an out-of-range parameter.
type ValidationPolicy int

const (
	// PolicyResetToDefault silently replaces an out-of-range value with its documented default.
	PolicyResetToDefault ValidationPolicy = iota
	// PolicyReject refuses the whole update and leaves the previous values in place.
	PolicyReject
)

func (p ValidationPolicy) String() string {
	switch p {
	case PolicyResetToDefault:
		return "reset"
	case PolicyReject:
		return "reject"
	default:
		return fmt.Sprintf("ValidationPolicy(%d)", int(p))
	}
}

// ParseValidationPolicy parses "reset" or "reject". The empty string is "reset".
func ParseValidationPolicy(s string) (ValidationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reset", "reset_to_default":
		return PolicyResetToDefault, nil
	case "reject":
		return PolicyReject, nil
	}
	return PolicyResetToDefault, errors.Errorf("unknown validation policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p ValidationPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ValidationPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseValidationPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParamError is returned under PolicyReject for a value outside its valid range.
type ParamError struct {
	Group string
	Name  string
	Value interface{}
	Valid string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s=%v out of valid range %s", e.Group, e.Name, e.Value, e.Valid)
}

// Range is a numeric interval. Open ends exclude the bound. Unbounded ends ignore it.
type Range struct {
	Min, Max         float64
	MinOpen, MaxOpen bool
	NoUpper          bool
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v float64) bool {
	if r.MinOpen {
		if v <= r.Min {
			return false
		}
	} else if v < r.Min {
		return false
	}
	if r.NoUpper {
		return true
	}
	if r.MaxOpen {
		return v < r.Max
	}
	return v <= r.Max
}

func (r Range) String() string {
	lo, hi := "[", "]"
	if r.MinOpen {
		lo = "("
	}
	if r.MaxOpen || r.NoUpper {
		hi = ")"
	}
	upper := "inf"
	if !r.NoUpper {
		upper = strconv.FormatFloat(r.Max, 'g', -1, 64)
	}
	return lo + strconv.FormatFloat(r.Min, 'g', -1, 64) + ", " + upper + hi
}

// ParamChecker applies a ValidationPolicy to the fields of one parameter group.
type ParamChecker struct {
	Group  string
	Policy ValidationPolicy
	Logger logging.Logger

	errs []error
}

// NewParamChecker returns a checker for the named group.
func NewParamChecker(group string, policy ValidationPolicy, logger logging.Logger) *ParamChecker {
	return &ParamChecker{Group: group, Policy: policy, Logger: logger}
}

func (c *ParamChecker) invalid(name string, value, def interface{}, valid string) {
	if c.Policy == PolicyReject {
		c.errs = append(c.errs, &ParamError{Group: c.Group, Name: name, Value: value, Valid: valid})
		return
	}
	if c.Logger != nil {
		c.Logger.Debugw("parameter out of range, using default",
			"group", c.Group, "name", name, "value", value, "default", def, "valid", valid)
	}
}

// Float returns v if it lies in r, otherwise the default (reset) or v with a recorded error (reject).
func (c *ParamChecker) Float(name string, v float64, r Range, def float64) float64 {
	if r.Contains(v) {
		return v
	}
	c.invalid(name, v, def, r.String())
	if c.Policy == PolicyReject {
		return v
	}
	return def
}

// Int is Float for integer parameters.
func (c *ParamChecker) Int(name string, v int, r Range, def int) int {
	if r.Contains(float64(v)) {
		return v
	}
	c.invalid(name, v, def, r.String())
	if c.Policy == PolicyReject {
		return v
	}
	return def
}

// Choice checks v against a fixed set of strings.
func (c *ParamChecker) Choice(name, v string, choices []string, def string) string {
	for _, choice := range choices {
		if v == choice {
			return v
		}
	}
	c.invalid(name, v, def, "{"+strings.Join(choices, ", ")+"}")
	if c.Policy == PolicyReject {
		return v
	}
	return def
}

// OrderedInts checks that lo does not exceed hi. Otherwise both fall back to their defaults
// (reset) or are kept with a recorded error (reject).
func (c *ParamChecker) OrderedInts(loName, hiName string, lo, hi, loDef, hiDef int) (int, int) {
	if lo <= hi {
		return lo, hi
	}
	c.invalid(loName, lo, loDef, fmt.Sprintf("<= %s (%d)", hiName, hi))
	if c.Policy == PolicyReject {
		return lo, hi
	}
	return loDef, hiDef
}

// Switch interprets v as an on/off switch. Anything else is treated like an out-of-range value.
func (c *ParamChecker) Switch(name string, v interface{}, def bool) bool {
	if b, ok := OnOff(v); ok {
		return b
	}
	c.invalid(name, v, def, "{on, off}")
	return def
}

// Err returns every rejected parameter combined, or nil.
func (c *ParamChecker) Err() error {
	return multierr.Combine(c.errs...)
}
