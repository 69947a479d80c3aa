package pointcloud

import (
	"github.com/pkg/errors"

	"github.com/viam-labs/superquadric-model/logging"
	"github.com/viam-labs/superquadric-model/utils"
)

// Point filter defaults, used when a configured value is out of range.
const (
	DefaultFilterRadius      = 0.005
	DefaultFilterNNThreshold = 100
)

var (
	filterRadiusRange      = utils.Range{Min: 1e-7, Max: 0.01, MinOpen: true, MaxOpen: true}
	filterNNThresholdRange = utils.Range{Min: 0, Max: 100, MinOpen: true, MaxOpen: true}
)

// DensityFilterParams configure FilterByDensity as run by the pipeline.
type DensityFilterParams struct {
	// Radius in meters of the neighborhood searched around each point.
	Radius float64 `json:"filter_radius" yaml:"filter_radius" mapstructure:"filter_radius"`
	// NNThreshold is how many other points must lie in the neighborhood for a point to be kept.
	NNThreshold int `json:"filter_nnThreshold" yaml:"filter_nnThreshold" mapstructure:"filter_nnThreshold"`
}

// DefaultDensityFilterParams returns the documented defaults.
func DefaultDensityFilterParams() DensityFilterParams {
	return DensityFilterParams{Radius: DefaultFilterRadius, NNThreshold: DefaultFilterNNThreshold}
}

// Validate checks every field against its valid range. Under utils.PolicyResetToDefault the
// returned params carry defaults in place of bad values and the error is nil. Under
// utils.PolicyReject the error lists every bad value.
func (p DensityFilterParams) Validate(policy utils.ValidationPolicy, logger logging.Logger) (DensityFilterParams, error) {
	c := utils.NewParamChecker("point_filter", policy, logger)
	out := DensityFilterParams{
		Radius:      c.Float("filter_radius", p.Radius, filterRadiusRange, DefaultFilterRadius),
		NNThreshold: c.Int("filter_nnThreshold", p.NNThreshold, filterNNThresholdRange, DefaultFilterNNThreshold),
	}
	if err := c.Err(); err != nil {
		return p, err
	}
	return out, nil
}

// FilterByDensity returns the points of cloud that have at least k points, themselves included,
// within radius. Neighbors are looked up in a k-d tree built once over the whole cloud and each
// search stops at k, since only "at least k" matters. Retained points keep their input order and
// the input is left untouched.
func FilterByDensity(cloud Cloud, radius float64, k int) (Cloud, error) {
	if radius <= 0 {
		return nil, errors.Errorf("density filter radius must be positive, got %v", radius)
	}
	if k < 1 {
		return nil, errors.Errorf("density filter threshold must be at least 1, got %d", k)
	}
	if len(cloud) == 0 {
		return Cloud{}, nil
	}

	tree := NewKDTree(cloud.Vectors())
	out := make(Cloud, 0, len(cloud))
	for _, p := range cloud {
		if tree.RadiusCount(p.Position, radius, k) >= k {
			out = append(out, p)
		}
	}
	return out, nil
}
