// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package softdevice is an in-process reference implementation of the
// signer capability.
//
// It behaves like a hardware device without the hardware: keys are
// derived from a BIP-39 mnemonic, addresses are computed for real
// chains, signing blocks until an explicit approve/reject (the
// "button press"), and the link handshake can demand that an app be
// "opened" first. Orchestrator tests and the demo CLI run against it.
package softdevice

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/tyler-smith/go-bip39"

	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/derivation"
	"github.com/coldpath-wallet/coldpath/internal/device"
	"github.com/coldpath-wallet/coldpath/internal/link"
	"github.com/coldpath-wallet/coldpath/internal/session"
	"github.com/coldpath-wallet/coldpath/internal/signer"
	"github.com/coldpath-wallet/coldpath/internal/util"
)

// SoftDevice emulates one external signer device.
type SoftDevice struct {
	dev  device.Discovered
	seed []byte

	mu       sync.Mutex
	dialErr  error
	busy     bool
	approve  chan bool
	appOpen  bool
	needsApp string
	auto     bool

	displays chan signer.AddressResult
}

// Option configures a SoftDevice at construction.
type Option func(*SoftDevice)

// WithRequiredApp makes the handshake report requires-app-open until
// OpenApp is called, emulating Ledger-style per-chain apps.
func WithRequiredApp(app string) Option {
	return func(s *SoftDevice) { s.needsApp = app }
}

// WithAutoApprove makes Sign succeed without an explicit Approve call.
func WithAutoApprove() Option {
	return func(s *SoftDevice) { s.auto = true }
}

// New creates a soft device seeded from the mnemonic.
func New(mnemonic string, dev device.Discovered, opts ...Option) (*SoftDevice, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	s := &SoftDevice{
		dev:      dev,
		seed:     bip39.NewSeed(mnemonic, ""),
		displays: make(chan signer.AddressResult, 8),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Device returns the discovery record for this device.
func (s *SoftDevice) Device() device.Discovered {
	return s.dev
}

// Plug announces the device to a registry, as if its link appeared.
func (s *SoftDevice) Plug(r *device.Registry) {
	r.Announce(s.dev)
}

// Unplug withdraws the device from a registry.
func (s *SoftDevice) Unplug(r *device.Registry) {
	r.Withdraw(s.dev.ID)
}

// OpenApp emulates the user opening the required on-device app.
func (s *SoftDevice) OpenApp() {
	s.mu.Lock()
	s.appOpen = true
	s.mu.Unlock()
}

// SetDialError makes subsequent dials fail, emulating an unreachable
// device.
func (s *SoftDevice) SetDialError(err error) {
	s.mu.Lock()
	s.dialErr = err
	s.mu.Unlock()
}

// SetBusy toggles the busy state; while busy, all requests are refused.
func (s *SoftDevice) SetBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
}

// Approve confirms the pending signing request (the on-device button).
// A no-op when nothing is pending.
func (s *SoftDevice) Approve() {
	s.resolve(true)
}

// Reject declines the pending signing request on the device.
func (s *SoftDevice) Reject() {
	s.resolve(false)
}

func (s *SoftDevice) resolve(approved bool) {
	s.mu.Lock()
	ch := s.approve
	s.approve = nil
	s.mu.Unlock()
	if ch != nil {
		ch <- approved
	}
}

// Displays delivers every address the device "renders on its screen"
// during verified derivation. Buffered; drained by tests and UIs.
func (s *SoftDevice) Displays() <-chan signer.AddressResult {
	return s.displays
}

// Dialer returns a link dialer that connects to this device.
func (s *SoftDevice) Dialer() link.Dialer {
	return func(ctx context.Context, deviceID string) (link.Transport, error) {
		s.mu.Lock()
		dialErr := s.dialErr
		s.mu.Unlock()

		if deviceID != s.dev.ID {
			return nil, fmt.Errorf("unknown device %q", deviceID)
		}
		if dialErr != nil {
			return nil, dialErr
		}
		return &softTransport{dev: s}, nil
	}
}

// DeriveAddress implements signer.Signer.
func (s *SoftDevice) DeriveAddress(ctx context.Context, sess *session.Session, path derivation.Path, chain chains.Chain, verify bool) (signer.AddressResult, error) {
	if err := ctx.Err(); err != nil {
		return signer.AddressResult{}, err
	}
	if s.isBusy() {
		return signer.AddressResult{}, signer.ErrDeviceBusy
	}
	if err := derivation.Validate(path, chain); err != nil {
		return signer.AddressResult{}, err
	}

	kp, err := deriveKeyPair(s.seed, path, chain)
	if err != nil {
		return signer.AddressResult{}, err
	}
	addr, err := address(kp, chain)
	if err != nil {
		return signer.AddressResult{}, err
	}

	result := signer.AddressResult{
		Address:   addr,
		PublicKey: kp.pub,
		Path:      path.Clone(),
	}

	if verify {
		// The device renders the address on its own screen; mirror
		// that to observers.
		select {
		case s.displays <- result:
		default:
		}
		util.Debug("softdevice: displaying address", "device", s.dev.ID, "address", addr)
	}
	return result, nil
}

// Sign implements signer.Signer. It blocks until Approve or Reject is
// called (or immediately approves in auto mode).
func (s *SoftDevice) Sign(ctx context.Context, sess *session.Session, path derivation.Path, tx signer.Transaction, chain chains.Chain) (signer.SignatureResult, error) {
	if s.isBusy() {
		return signer.SignatureResult{}, signer.ErrDeviceBusy
	}
	if err := derivation.Validate(path, chain); err != nil {
		return signer.SignatureResult{}, err
	}
	if len(tx.RawData) == 0 {
		return signer.SignatureResult{}, fmt.Errorf("empty transaction payload")
	}

	s.mu.Lock()
	if s.approve != nil {
		s.mu.Unlock()
		return signer.SignatureResult{}, signer.ErrDeviceBusy
	}
	ch := make(chan bool, 1)
	s.approve = ch
	auto := s.auto
	s.mu.Unlock()

	if auto {
		s.resolve(true)
	}

	select {
	case <-ctx.Done():
		s.resolve(false)
		return signer.SignatureResult{}, ctx.Err()
	case approved := <-ch:
		if !approved {
			return signer.SignatureResult{}, signer.ErrDeviceRejected
		}
	}

	return s.signRaw(path, tx.RawData, chain)
}

func (s *SoftDevice) signRaw(path derivation.Path, raw []byte, chain chains.Chain) (signer.SignatureResult, error) {
	kp, err := deriveKeyPair(s.seed, path, chain)
	if err != nil {
		return signer.SignatureResult{}, err
	}

	switch kp.scheme {
	case "ed25519":
		sig := ed25519.Sign(ed25519.PrivateKey(kp.priv), raw)
		return signer.SignatureResult{Signature: sig, PublicKey: kp.pub, Scheme: kp.scheme}, nil

	default:
		priv, _ := btcec.PrivKeyFromBytes(kp.priv)
		digest := digestFor(raw, chain)
		sig := btcecdsa.Sign(priv, digest)
		return signer.SignatureResult{Signature: sig.Serialize(), PublicKey: kp.pub, Scheme: kp.scheme}, nil
	}
}

// digestFor hashes the raw payload the way the chain expects before
// ECDSA signing.
func digestFor(raw []byte, chain chains.Chain) []byte {
	if chain == chains.Bitcoin {
		first := sha256.Sum256(raw)
		second := sha256.Sum256(first[:])
		return second[:]
	}
	return keccak256(raw)
}

func (s *SoftDevice) isBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// softTransport is the in-process link to a SoftDevice.
type softTransport struct {
	dev    *SoftDevice
	mu     sync.Mutex
	closed bool
}

// Compile-time interface checks
var (
	_ link.Transport = (*softTransport)(nil)
	_ signer.Signer  = (*SoftDevice)(nil)
)

func (t *softTransport) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, link.ErrLinkDropped
	}
	// The soft device has no wire protocol; echo for link tests.
	return request, nil
}

func (t *softTransport) Status(ctx context.Context) (link.Status, error) {
	if err := ctx.Err(); err != nil {
		return link.Status{}, err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return link.Status{}, link.ErrLinkDropped
	}
	t.mu.Unlock()

	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if t.dev.needsApp != "" && !t.dev.appOpen {
		return link.StatusRequiresApp(t.dev.needsApp), nil
	}
	return link.StatusReady(), nil
}

func (t *softTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
