// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package airgap

import (
	"context"
	"time"
)

// DefaultFrameRate is the display rate for multi-part transfers.
const DefaultFrameRate = 8 // frames per second

// Animator cycles a frame sequence at a fixed rate, forever, until
// stopped. The scanning device resynchronizes from any frame's
// index/total/checksum, so the cycle has no meaningful start.
type Animator struct {
	frames   []string
	interval time.Duration
}

// NewAnimator creates an animator over the encoded frames.
// A non-positive fps falls back to DefaultFrameRate.
func NewAnimator(frames []string, fps int) *Animator {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &Animator{
		frames:   frames,
		interval: time.Second / time.Duration(fps),
	}
}

// Interval returns the delay between frames.
func (a *Animator) Interval() time.Duration {
	return a.interval
}

// FrameCount returns the number of distinct frames in the cycle.
func (a *Animator) FrameCount() int {
	return len(a.frames)
}

// Frame returns the frame for an absolute tick number. Restarting an
// animation at tick zero regenerates the identical sequence.
func (a *Animator) Frame(tick int) string {
	if len(a.frames) == 0 {
		return ""
	}
	return a.frames[tick%len(a.frames)]
}

// Run delivers frames on the returned channel at the configured rate
// until ctx is cancelled. A single-frame sequence is delivered once
// and then the channel blocks until cancellation; there is nothing to
// animate.
func (a *Animator) Run(ctx context.Context) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)
		if len(a.frames) == 0 {
			return
		}

		// First frame immediately
		select {
		case out <- a.frames[0]:
		case <-ctx.Done():
			return
		}
		if len(a.frames) == 1 {
			<-ctx.Done()
			return
		}

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		tick := 1
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- a.Frame(tick):
					tick++
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
