// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package setup drives the guided first-time pairing flow: discover a
// device, connect, verify a derived address against the device's own
// display, and store the resulting account.
//
// The flow runs as a single goroutine that owns all state; user
// actions arrive on a command channel and are applied strictly in
// order, so no transition ever races another. The address
// verification gate is the flow's reason to exist: no code path
// stores an account whose address the user did not explicitly confirm.
package setup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/coldpath-wallet/coldpath/internal/accounts"
	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/derivation"
	"github.com/coldpath-wallet/coldpath/internal/device"
	"github.com/coldpath-wallet/coldpath/internal/session"
	"github.com/coldpath-wallet/coldpath/internal/signer"
	"github.com/coldpath-wallet/coldpath/internal/util"
)

// ErrAddressMismatch is the terminal error when the user declares that
// the host-shown address differs from the device's display. It is a
// security failure, not a connectivity failure; callers must not
// present it as retryable.
var ErrAddressMismatch = errors.New("address mismatch: the device displayed a different address")

// Stage is the setup flow state.
type Stage string

const (
	StageDiscovery     Stage = "discovery"
	StageConnecting    Stage = "connecting"
	StageSelectApp     Stage = "selectApp"
	StageVerifyAddress Stage = "verifyAddress"
	StageComplete      Stage = "complete"
	StageError         Stage = "error"
)

// State is one observable snapshot of the flow.
type State struct {
	Stage Stage

	// Device is set from StageConnecting onward.
	Device device.Discovered

	// App names the on-device application to open (StageSelectApp).
	App string

	// Address is the device-attested derivation result
	// (StageVerifyAddress).
	Address signer.AddressResult

	// Account is the stored result (StageComplete).
	Account accounts.Account

	// Err is set in StageError.
	Err error
}

type cmdKind int

const (
	cmdSelectDevice cmdKind = iota
	cmdContinueFromApp
	cmdConfirmAddress
	cmdRejectAddress
	cmdRetryConnection
	cmdStartOver
)

type command struct {
	kind     cmdKind
	deviceID string
}

// Flow is one setup attempt. Create one per pairing; a Flow is not
// reusable after its state channel closes.
type Flow struct {
	registry *device.Registry
	sessions *session.Manager
	signers  *signer.Registry
	store    accounts.Store

	chain chains.Chain
	path  derivation.Path

	cmds   chan command
	states chan State
}

// Option configures a Flow.
type Option func(*Flow)

// WithPath overrides the chain's default derivation path.
func WithPath(path derivation.Path) Option {
	return func(f *Flow) { f.path = path.Clone() }
}

// New assembles a setup flow from its collaborators. Nothing is
// shared process-wide; the caller owns every dependency.
func New(registry *device.Registry, sessions *session.Manager, signers *signer.Registry, store accounts.Store, opts ...Option) *Flow {
	f := &Flow{
		registry: registry,
		sessions: sessions,
		signers:  signers,
		store:    store,
		cmds:     make(chan command, 8),
		states:   make(chan State, 16),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start begins the flow for a chain and returns the state stream. The
// stream ends after StageComplete or when ctx is cancelled; StageError
// is not terminal, since the user may retry or start over.
func (f *Flow) Start(ctx context.Context, chain chains.Chain) <-chan State {
	f.chain = chain
	if f.path == nil {
		f.path = derivation.Default(chain)
	}
	go f.run(ctx)
	return f.states
}

// SelectDevice reacts to the user picking a discovered device.
func (f *Flow) SelectDevice(deviceID string) {
	f.send(command{kind: cmdSelectDevice, deviceID: deviceID})
}

// ContinueFromApp signals that the user opened the required app.
func (f *Flow) ContinueFromApp() {
	f.send(command{kind: cmdContinueFromApp})
}

// ConfirmAddressMatches records the explicit "address matches" gate
// and stores the account.
func (f *Flow) ConfirmAddressMatches() {
	f.send(command{kind: cmdConfirmAddress})
}

// RejectAddressMismatch records the explicit "address doesn't match"
// gate. Terminal for this attempt; only StartOver leaves it.
func (f *Flow) RejectAddressMismatch() {
	f.send(command{kind: cmdRejectAddress})
}

// RetryConnection retries the connection to the same device after an
// error.
func (f *Flow) RetryConnection() {
	f.send(command{kind: cmdRetryConnection})
}

// StartOver discards all flow state and returns to discovery.
func (f *Flow) StartOver() {
	f.send(command{kind: cmdStartOver})
}

func (f *Flow) send(cmd command) {
	select {
	case f.cmds <- cmd:
	default:
		// The flow has stopped consuming; drop rather than block the
		// UI thread.
	}
}

// run owns all mutable flow state.
func (f *Flow) run(ctx context.Context) {
	defer close(f.states)
	defer f.registry.StopScanning()

	f.registry.StartScanning()
	f.emit(ctx, State{Stage: StageDiscovery})

	var (
		current  device.Discovered
		selected bool
		sess     *session.Session
		address  signer.AddressResult
		verified bool
		mismatch bool
	)

	closeSession := func() {
		if sess != nil {
			_ = sess.Close()
			sess = nil
		}
	}
	defer closeSession()

	connect := func() {
		verified = false
		f.emit(ctx, State{Stage: StageConnecting, Device: current})

		s, err := f.sessions.Connect(ctx, current)
		if err != nil {
			f.emit(ctx, State{Stage: StageError, Device: current, Err: err})
			return
		}
		sess = s

		status, err := sess.Status(ctx)
		if err != nil {
			f.emit(ctx, State{Stage: StageError, Device: current, Err: err})
			return
		}
		if !status.Ready {
			app := status.RequiresApp
			if app == "" {
				app = current.Type.RequiredApp(f.chain)
			}
			f.emit(ctx, State{Stage: StageSelectApp, Device: current, App: app})
			return
		}
		f.derive(ctx, current, sess, &address, &verified)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-f.cmds:
			switch cmd.kind {
			case cmdSelectDevice:
				dev, ok := f.registry.Lookup(cmd.deviceID)
				if !ok {
					f.emit(ctx, State{Stage: StageError, Err: errors.New("selected device is no longer available")})
					continue
				}
				current, selected = dev, true
				connect()

			case cmdContinueFromApp:
				if sess == nil {
					continue
				}
				status, err := sess.Status(ctx)
				if err != nil {
					f.emit(ctx, State{Stage: StageError, Device: current, Err: err})
					continue
				}
				if !status.Ready {
					f.emit(ctx, State{Stage: StageSelectApp, Device: current, App: status.RequiresApp})
					continue
				}
				f.derive(ctx, current, sess, &address, &verified)

			case cmdConfirmAddress:
				if !verified || mismatch {
					// No derived address on display; nothing to confirm.
					continue
				}
				account, err := f.storeAccount(current, address)
				if err != nil {
					f.emit(ctx, State{Stage: StageError, Device: current, Err: err})
					continue
				}
				util.Debug("setup: account stored", "id", account.ID, "address", account.Address)
				f.emit(ctx, State{Stage: StageComplete, Device: current, Account: account})
				return

			case cmdRejectAddress:
				if !verified {
					continue
				}
				mismatch = true
				verified = false
				f.emit(ctx, State{Stage: StageError, Device: current, Err: ErrAddressMismatch})

			case cmdRetryConnection:
				if !selected || mismatch {
					// A declared mismatch must not be retried against
					// the same derivation; only StartOver leaves it.
					continue
				}
				closeSession()
				connect()

			case cmdStartOver:
				closeSession()
				current, selected = device.Discovered{}, false
				address, verified, mismatch = signer.AddressResult{}, false, false
				f.registry.StopScanning()
				f.registry.StartScanning()
				f.emit(ctx, State{Stage: StageDiscovery})
			}
		}
	}
}

// derive asks the device to compute and display the address, then
// enters the verification stage.
func (f *Flow) derive(ctx context.Context, dev device.Discovered, sess *session.Session, address *signer.AddressResult, verified *bool) {
	backend, err := f.signers.For(dev.Type)
	if err != nil {
		f.emit(ctx, State{Stage: StageError, Device: dev, Err: err})
		return
	}

	result, err := backend.DeriveAddress(ctx, sess, f.path, f.chain, true)
	if err != nil {
		f.emit(ctx, State{Stage: StageError, Device: dev, Err: err})
		return
	}

	*address = result
	*verified = true
	f.emit(ctx, State{Stage: StageVerifyAddress, Device: dev, Address: result})
}

// storeAccount persists the confirmed address as a reusable account.
func (f *Flow) storeAccount(dev device.Discovered, address signer.AddressResult) (accounts.Account, error) {
	account := accounts.Account{
		ID:         newAccountID(),
		DeviceType: dev.Type,
		Chain:      f.chain,
		Path:       address.Path.Clone(),
		Address:    address.Address,
		PublicKey:  address.PublicKey,
	}
	if err := f.store.Add(account); err != nil {
		return accounts.Account{}, err
	}
	return account, nil
}

func newAccountID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-derived id rather than crash a UI flow.
		return hex.EncodeToString([]byte(time.Now().Format("150405.000000000")))
	}
	return hex.EncodeToString(buf[:])
}

func (f *Flow) emit(ctx context.Context, state State) {
	select {
	case f.states <- state:
	case <-ctx.Done():
	}
}
