//go:build !linux

package streamcapture

import (
	"context"
	"fmt"
)

// V4L2Provider is only available on Linux
type V4L2Provider struct {
	Device string
	Width  int
	Height int
}

// Probe implements Provider
func (p *V4L2Provider) Probe() error {
	return fmt.Errorf("%w: v4l2 requires linux", ErrUnsupported)
}

// Acquire implements Provider
func (p *V4L2Provider) Acquire(ctx context.Context) (Source, error) {
	return nil, p.Probe()
}
