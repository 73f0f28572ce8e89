// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package signflow obtains a signature over a pending transaction
// from a previously paired device.
//
// The flow reconnects to the device (waiting a bounded courtesy
// window for the user to physically attach it), shows the caller's
// audit projection while waiting for the on-device confirmation, and
// passes the signer's result or error through verbatim. Cancellation
// is honored at every wait point; no partial result ever reaches the
// caller.
package signflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coldpath-wallet/coldpath/internal/accounts"
	"github.com/coldpath-wallet/coldpath/internal/device"
	"github.com/coldpath-wallet/coldpath/internal/session"
	"github.com/coldpath-wallet/coldpath/internal/signer"
	"github.com/coldpath-wallet/coldpath/internal/util"
)

// ErrDeviceNotFound is the terminal error when the device does not
// appear within the discovery wait.
var ErrDeviceNotFound = errors.New("device not found within discovery window")

// Default discovery wait: one poll per second for 30 seconds. This is
// a courtesy window for the user to plug the device in, not a retry
// loop.
const (
	DefaultDiscoveryPolls = 30
	DefaultPollInterval   = time.Second
)

// Stage is the signing flow state.
type Stage string

const (
	StageConnecting           Stage = "connecting"
	StageAwaitingConfirmation Stage = "awaitingConfirmation"
	StageSigning              Stage = "signing"
	StageComplete             Stage = "complete"
	StageError                Stage = "error"
)

// State is one observable snapshot of the flow.
type State struct {
	Stage Stage

	// Display is the caller's audit projection, surfaced during
	// StageAwaitingConfirmation. Informational only; the on-device
	// screen is the authority.
	Display *signer.DisplayInfo

	// Result is the signature (StageComplete).
	Result signer.SignatureResult

	// Err is set in StageError, verbatim from the failing layer.
	Err error
}

// Flow is one signing attempt for one account and transaction.
type Flow struct {
	registry *device.Registry
	sessions *session.Manager
	signers  *signer.Registry

	account accounts.Account
	tx      signer.Transaction

	polls    int
	interval time.Duration

	mu        sync.Mutex
	confirmed chan struct{}
	retry     chan struct{}
	states    chan State

	startedScan bool
}

// Option configures a Flow.
type Option func(*Flow)

// WithDiscoveryWait overrides the poll count and interval of the
// discovery wait. Tests shrink these; production keeps the defaults.
func WithDiscoveryWait(polls int, interval time.Duration) Option {
	return func(f *Flow) {
		f.polls = polls
		f.interval = interval
	}
}

// New assembles a signing flow.
func New(registry *device.Registry, sessions *session.Manager, signers *signer.Registry, opts ...Option) *Flow {
	f := &Flow{
		registry: registry,
		sessions: sessions,
		signers:  signers,
		polls:    DefaultDiscoveryPolls,
		interval: DefaultPollInterval,
		retry:    make(chan struct{}, 1),
		states:   make(chan State, 16),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start begins signing tx with the account's device and returns the
// state stream. The stream ends after StageComplete or cancellation;
// StageError waits for Retry.
func (f *Flow) Start(ctx context.Context, account accounts.Account, tx signer.Transaction) <-chan State {
	f.account = account
	f.tx = tx
	go f.run(ctx)
	return f.states
}

// ConfirmOnDevice delivers the out-of-band "button pressed on device"
// signal the flow waits for before invoking the signer.
func (f *Flow) ConfirmOnDevice() {
	f.mu.Lock()
	ch := f.confirmed
	f.confirmed = nil
	f.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// Retry restarts the whole sequence, including the discovery wait,
// after an error.
func (f *Flow) Retry() {
	select {
	case f.retry <- struct{}{}:
	default:
	}
}

func (f *Flow) run(ctx context.Context) {
	defer close(f.states)
	defer func() {
		// Only undo scanning this flow itself turned on.
		if f.startedScan {
			f.registry.StopScanning()
		}
	}()

	for {
		err := f.attempt(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		f.emit(ctx, State{Stage: StageError, Err: err})

		// Hold in the error state until an explicit retry.
		select {
		case <-ctx.Done():
			return
		case <-f.retry:
			util.Debug("signflow: retrying", "account", f.account.ID)
		}
	}
}

// attempt runs one full connect/confirm/sign sequence. A nil return
// means the flow reached StageComplete.
func (f *Flow) attempt(ctx context.Context) error {
	f.emit(ctx, State{Stage: StageConnecting})

	dev, err := f.awaitDevice(ctx)
	if err != nil {
		return err
	}

	sess, err := f.sessions.Connect(ctx, dev)
	if err != nil {
		return err
	}

	if err := sess.AwaitReady(ctx, 500*time.Millisecond); err != nil {
		return err
	}

	// Arm the confirmation signal before telling the caller to watch
	// the device, so a fast ConfirmOnDevice cannot be lost.
	confirmed := make(chan struct{})
	f.mu.Lock()
	f.confirmed = confirmed
	f.mu.Unlock()

	f.emit(ctx, State{Stage: StageAwaitingConfirmation, Display: f.tx.Display})

	select {
	case <-ctx.Done():
		f.disarm()
		return ctx.Err()
	case <-confirmed:
	}

	f.emit(ctx, State{Stage: StageSigning})

	backend, err := f.signers.For(f.account.DeviceType)
	if err != nil {
		return err
	}
	result, err := backend.Sign(ctx, sess, f.account.Path, f.tx, f.account.Chain)
	if err != nil {
		// Verbatim: the caller decides how to present device errors.
		return err
	}

	f.emit(ctx, State{Stage: StageComplete, Result: result})
	return nil
}

// awaitDevice returns a discovered device matching the account's
// device type. If one is already reachable it is used immediately;
// otherwise the registry scans while the flow polls once per interval,
// re-checking cancellation every tick.
func (f *Flow) awaitDevice(ctx context.Context) (device.Discovered, error) {
	if dev, ok := f.lookup(); ok {
		return dev, nil
	}

	f.registry.StartScanning()
	f.startedScan = true

	for poll := 0; poll < f.polls; poll++ {
		select {
		case <-ctx.Done():
			return device.Discovered{}, ctx.Err()
		case <-time.After(f.interval):
		}
		if dev, ok := f.lookup(); ok {
			return dev, nil
		}
	}
	return device.Discovered{}, fmt.Errorf("%w: %s after %d polls",
		ErrDeviceNotFound, f.account.DeviceType.DisplayName(), f.polls)
}

func (f *Flow) lookup() (device.Discovered, bool) {
	for _, dev := range f.registry.Snapshot() {
		if dev.Type == f.account.DeviceType {
			return dev, true
		}
	}
	return device.Discovered{}, false
}

func (f *Flow) disarm() {
	f.mu.Lock()
	f.confirmed = nil
	f.mu.Unlock()
}

func (f *Flow) emit(ctx context.Context, state State) {
	select {
	case f.states <- state:
	case <-ctx.Done():
	}
}
