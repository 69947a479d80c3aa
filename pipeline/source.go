package pipeline

import (
	"context"
	"sync"

	"github.com/viam-labs/superquadric-model/pointcloud"
)

// A Source supplies the raw points for a cycle. Next must not block. It returns false when
// there is nothing new.
type Source interface {
	Next(ctx context.Context) (pointcloud.Cloud, bool)
}

// FrameBuffer holds the most recently pushed frame until a cycle takes it. Older frames that
// were never taken are dropped.
type FrameBuffer struct {
	mu    sync.Mutex
	frame pointcloud.Cloud
	ready bool
}

// NewFrameBuffer returns an empty frame buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Push replaces any waiting frame with cloud.
func (fb *FrameBuffer) Push(cloud pointcloud.Cloud) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.frame = cloud.Clone()
	fb.ready = true
}

// Next takes the waiting frame, if any.
func (fb *FrameBuffer) Next(ctx context.Context) (pointcloud.Cloud, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if !fb.ready {
		return nil, false
	}
	frame := fb.frame
	fb.frame, fb.ready = nil, false
	return frame, true
}

// StaticSource returns the same cloud every cycle.
type StaticSource struct {
	cloud pointcloud.Cloud
}

// NewStaticSource returns a source for a fixed cloud.
func NewStaticSource(cloud pointcloud.Cloud) *StaticSource {
	return &StaticSource{cloud: cloud.Clone()}
}

// NewStaticSourceFromFile reads the cloud from an OFF file.
func NewStaticSourceFromFile(fn string) (*StaticSource, error) {
	cloud, err := pointcloud.NewFromFile(fn)
	if err != nil {
		return nil, err
	}
	return &StaticSource{cloud: cloud}, nil
}

// Next returns a copy of the fixed cloud.
func (s *StaticSource) Next(ctx context.Context) (pointcloud.Cloud, bool) {
	return s.cloud.Clone(), true
}
