package pipeline

import (
	"context"
	"time"

	"github.com/viam-labs/superquadric-model/pointcloud"
	"github.com/viam-labs/superquadric-model/superquadric"
)

// Fit returns the latest raw fit. It is zero until a fit succeeds and after a fit fails.
func (c *Controller) Fit() superquadric.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fit
}

// SmoothedFit returns the latest median-filtered fit.
func (c *Controller) SmoothedFit() superquadric.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.smoothed
}

// Solution returns the smoothed fit if filtered is set, the raw fit otherwise.
func (c *Controller) Solution(filtered bool) superquadric.Params {
	if filtered {
		return c.SmoothedFit()
	}
	return c.Fit()
}

// Points returns the points the last cycle fitted, after filtering.
func (c *Controller) Points() pointcloud.Cloud {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filteredPoints.Clone()
}

// SendPoints replaces the raw points. The next cycle fits them instead of pulling from the
// source.
func (c *Controller) SendPoints(ctx context.Context, cloud pointcloud.Cloud) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rawPoints = dropOrigin(cloud)
	c.pointsSent = true
	c.logger.CDebugw(ctx, "points received", "points", len(c.rawPoints))
}

// CycleDuration returns how long the last cycle took.
func (c *Controller) CycleDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycleDuration
}

// StageDurations returns how long each stage of the last cycle took.
func (c *Controller) StageDurations() StageDurations {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stageDurations
}

// WindowOrder returns the smoother's current median window.
func (c *Controller) WindowOrder() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.smoother.Order()
}

// LastOutcome returns how the last fit attempt ended.
func (c *Controller) LastOutcome() superquadric.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutcome
}

// Stage returns the stage of the running cycle. Because a cycle holds the lock throughout,
// callers outside a cycle always see StageIdle.
func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Cycles returns how many cycles have run.
func (c *Controller) Cycles() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}
