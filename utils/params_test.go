package utils

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/viam-labs/superquadric-model/logging"
)

func TestRange(t *testing.T) {
	open := Range{Min: 0, Max: 0.01, MinOpen: true, MaxOpen: true}
	test.That(t, open.Contains(0), test.ShouldBeFalse)
	test.That(t, open.Contains(0.005), test.ShouldBeTrue)
	test.That(t, open.Contains(0.01), test.ShouldBeFalse)
	test.That(t, open.String(), test.ShouldEqual, "(0, 0.01)")

	closed := Range{Min: 1, Max: 50}
	test.That(t, closed.Contains(1), test.ShouldBeTrue)
	test.That(t, closed.Contains(50), test.ShouldBeTrue)
	test.That(t, closed.Contains(51), test.ShouldBeFalse)
	test.That(t, closed.String(), test.ShouldEqual, "[1, 50]")

	unbounded := Range{Min: 1, MinOpen: true, NoUpper: true}
	test.That(t, unbounded.Contains(1), test.ShouldBeFalse)
	test.That(t, unbounded.Contains(1e9), test.ShouldBeTrue)
	test.That(t, unbounded.String(), test.ShouldEqual, "(1, inf)")
}

func TestParamCheckerReset(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	c := NewParamChecker("points", PolicyResetToDefault, logger)

	test.That(t, c.Float("filter_radius", 0.02, Range{Min: 0, Max: 0.01, MinOpen: true, MaxOpen: true}, 0.005),
		test.ShouldEqual, 0.005)
	test.That(t, c.Int("filter_nnThreshold", 7, Range{Min: 0, Max: 100, MinOpen: true, MaxOpen: true}, 100),
		test.ShouldEqual, 7)
	test.That(t, c.Choice("mu_strategy", "fast", []string{"adaptive", "monotone"}, "monotone"),
		test.ShouldEqual, "monotone")
	test.That(t, c.Err(), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("parameter out of range, using default").Len(), test.ShouldEqual, 2)
}

func TestParamCheckerReject(t *testing.T) {
	c := NewParamChecker("points", PolicyReject, logging.NewTestLogger(t))

	test.That(t, c.Float("filter_radius", 0.02, Range{Min: 0, Max: 0.01, MinOpen: true, MaxOpen: true}, 0.005),
		test.ShouldEqual, 0.02)
	test.That(t, c.Int("filter_nnThreshold", 0, Range{Min: 0, Max: 100, MinOpen: true, MaxOpen: true}, 100),
		test.ShouldEqual, 0)

	err := c.Err()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "filter_radius=0.02 out of valid range (0, 0.01)")
	test.That(t, err.Error(), test.ShouldContainSubstring, "filter_nnThreshold=0")
}

func TestParseValidationPolicy(t *testing.T) {
	p, err := ParseValidationPolicy("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldEqual, PolicyResetToDefault)

	p, err = ParseValidationPolicy("Reject")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldEqual, PolicyReject)

	_, err = ParseValidationPolicy("strict")
	test.That(t, err, test.ShouldNotBeNil)

	var fromText ValidationPolicy
	test.That(t, fromText.UnmarshalText([]byte("reject")), test.ShouldBeNil)
	test.That(t, fromText, test.ShouldEqual, PolicyReject)
}

func TestAttributeMap(t *testing.T) {
	am := AttributeMap{
		"filter_radius":      "0.004",
		"filter_nnThreshold": 12.0,
		"fixed_window":       "on",
		"tag_file":           "mug",
	}
	test.That(t, am.Keys(), test.ShouldResemble,
		[]string{"filter_nnThreshold", "filter_radius", "fixed_window", "tag_file"})

	for _, v := range []interface{}{"on", "true", true, 1} {
		on, ok := OnOff(v)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, on, test.ShouldBeTrue)
	}
	on, ok := OnOff("off")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, on, test.ShouldBeFalse)
	_, ok = OnOff("sometimes")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestParamCheckerSwitch(t *testing.T) {
	c := NewParamChecker("smoothing", PolicyResetToDefault, logging.NewTestLogger(t))
	test.That(t, c.Switch("fixed_window", "on", false), test.ShouldBeTrue)
	test.That(t, c.Switch("fixed_window", "maybe", false), test.ShouldBeFalse)
	test.That(t, c.Err(), test.ShouldBeNil)

	c = NewParamChecker("smoothing", PolicyReject, logging.NewTestLogger(t))
	test.That(t, c.Switch("fixed_window", "maybe", false), test.ShouldBeFalse)
	var perr *ParamError
	test.That(t, errors.As(c.Err(), &perr), test.ShouldBeTrue)
	test.That(t, perr.Name, test.ShouldEqual, "fixed_window")
}
