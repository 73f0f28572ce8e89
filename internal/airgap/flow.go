// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package airgap

import (
	"context"
	"sync"
	"time"

	"github.com/coldpath-wallet/coldpath/internal/util"
)

// Phase is the air-gap flow state.
type Phase string

const (
	PhaseDisplayRequest Phase = "displayRequest"
	PhaseScanSignature  Phase = "scanSignature"
	PhaseProcessing     Phase = "processing"
	PhaseComplete       Phase = "complete"
	PhaseError          Phase = "error"
)

// State is one observable flow snapshot.
type State struct {
	Phase Phase

	// Frames are the codes to display during PhaseDisplayRequest.
	Frames []string

	// Progress is the inbound reassembly status during
	// PhaseScanSignature.
	Progress Progress

	// Signature is the returned payload, set in PhaseComplete.
	Signature []byte

	// Err is set in PhaseError.
	Err error
}

// processingPause is the short fixed delay before declaring complete.
// Purely cosmetic: it gives UIs a visible "processing" beat.
const processingPause = 500 * time.Millisecond

// Flow drives one air-gapped signing round trip: show the request
// frames, collect the scanned signature, deliver the payload.
//
// All mutation happens under one mutex; the state channel is the only
// way observers see transitions, in order.
type Flow struct {
	req   Request
	pause time.Duration

	mu      sync.Mutex
	phase   Phase
	decoder *Decoder
	states  chan State
	frames  []string
}

// NewFlow creates a flow for one request.
func NewFlow(req Request) *Flow {
	return &Flow{
		req:   req,
		pause: processingPause,
	}
}

// Begin encodes the request and enters the display phase. The
// returned channel delivers every subsequent state transition and is
// closed after a terminal state.
func (f *Flow) Begin() (<-chan State, error) {
	frames, err := Encode(f.req)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = frames
	f.decoder = NewDecoder()
	f.phase = PhaseDisplayRequest
	f.states = make(chan State, 8)
	f.emitLocked(State{Phase: PhaseDisplayRequest, Frames: frames})
	return f.states, nil
}

// Frames returns the encoded request frames. Encoding is
// deterministic, so retries display an identical sequence.
func (f *Flow) Frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

// StartScanning moves the flow from displaying the request to
// collecting the device's response.
func (f *Flow) StartScanning() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseDisplayRequest {
		return
	}
	f.phase = PhaseScanSignature
	f.emitLocked(State{Phase: PhaseScanSignature, Progress: f.decoder.Progress()})
}

// SubmitScannedCode feeds one scanned code into the flow. On the final
// frame the flow passes through the processing pause and completes
// with the signature payload. Invalid codes move the flow to error.
func (f *Flow) SubmitScannedCode(ctx context.Context, code string) {
	f.mu.Lock()
	if f.phase != PhaseScanSignature {
		f.mu.Unlock()
		return
	}
	payload, err := f.decoder.Submit(code)
	if err != nil {
		f.phase = PhaseError
		f.emitLocked(State{Phase: PhaseError, Err: err})
		f.closeLocked()
		f.mu.Unlock()
		return
	}
	if payload == nil {
		// More frames to come.
		f.emitLocked(State{Phase: PhaseScanSignature, Progress: f.decoder.Progress()})
		f.mu.Unlock()
		return
	}

	f.phase = PhaseProcessing
	f.emitLocked(State{Phase: PhaseProcessing})
	pause := f.pause
	f.mu.Unlock()

	// UI beat only; a cancelled context skips straight to completion
	// handling.
	select {
	case <-time.After(pause):
	case <-ctx.Done():
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		f.phase = PhaseError
		f.emitLocked(State{Phase: PhaseError, Err: ctx.Err()})
		f.closeLocked()
		return
	}
	f.phase = PhaseComplete
	util.Debug("airgap flow: signature received", "bytes", len(payload))
	f.emitLocked(State{Phase: PhaseComplete, Signature: payload})
	f.closeLocked()
}

// Retry resets a failed flow to the display phase with freshly (and
// identically) encoded frames and a clean decoder.
func (f *Flow) Retry() (<-chan State, error) {
	f.mu.Lock()
	if f.phase != PhaseError && f.phase != "" {
		f.mu.Unlock()
		return nil, nil
	}
	f.mu.Unlock()
	return f.Begin()
}

// Phase returns the current flow phase.
func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Result returns the signature payload once the flow completed.
// Authoritative even if the observer missed channel states.
func (f *Flow) Result() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseComplete || f.decoder == nil {
		return nil, false
	}
	return f.decoder.Result()
}

func (f *Flow) emitLocked(state State) {
	if f.states == nil {
		return
	}
	select {
	case f.states <- state:
	default:
		// Observer fell behind; the terminal state still fits the
		// buffer in practice, and dropping beats deadlock.
	}
}

func (f *Flow) closeLocked() {
	if f.states != nil {
		close(f.states)
		f.states = nil
	}
}
