// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package signflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coldpath-wallet/coldpath/internal/accounts"
	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/derivation"
	"github.com/coldpath-wallet/coldpath/internal/device"
	"github.com/coldpath-wallet/coldpath/internal/session"
	"github.com/coldpath-wallet/coldpath/internal/signer"
	"github.com/coldpath-wallet/coldpath/internal/signer/softdevice"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type harness struct {
	registry *device.Registry
	soft     *softdevice.SoftDevice
	flow     *Flow
	account  accounts.Account
	tx       signer.Transaction
}

func newHarness(t *testing.T, flowOpts []Option, softOpts ...softdevice.Option) *harness {
	t.Helper()

	soft, err := softdevice.New(testMnemonic, device.Discovered{
		ID:         "soft-1",
		Type:       device.LedgerNanoX,
		Connection: device.ConnectionUSB,
	}, softOpts...)
	if err != nil {
		t.Fatalf("softdevice.New: %v", err)
	}

	registry := device.NewRegistry()
	signers := signer.NewRegistry()
	signers.Register(device.VendorLedger, soft)

	return &harness{
		registry: registry,
		soft:     soft,
		flow:     New(registry, session.NewManager(soft.Dialer()), signers, flowOpts...),
		account: accounts.Account{
			ID:         "acct-1",
			DeviceType: device.LedgerNanoX,
			Chain:      chains.Ethereum,
			Path:       derivation.Default(chains.Ethereum),
		},
		tx: signer.Transaction{
			RawData: []byte{0x01, 0x02, 0x03, 0x04},
			Display: &signer.DisplayInfo{
				Type:      "transfer",
				Amount:    "0.5 ETH",
				Recipient: "0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
				Network:   "mainnet",
			},
		},
	}
}

func await(t *testing.T, states <-chan State, want Stage) State {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case state, ok := <-states:
			if !ok {
				t.Fatalf("state stream closed while waiting for %s", want)
			}
			if state.Stage == want {
				return state
			}
			if state.Stage == StageError && want != StageError {
				t.Fatalf("unexpected error state while waiting for %s: %v", want, state.Err)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for stage %s", want)
		}
	}
}

// A device that is already discovered is used immediately, without
// entering the discovery wait.
func TestAlreadyDiscoveredSkipsWait(t *testing.T) {
	// A one-poll, near-infinite interval: if the flow entered the wait
	// loop at all, the test would time out.
	h := newHarness(t, []Option{WithDiscoveryWait(1, time.Hour)}, softdevice.WithAutoApprove())
	h.registry.StartScanning()
	h.soft.Plug(h.registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := h.flow.Start(ctx, h.account, h.tx)
	await(t, states, StageConnecting)

	confirm := await(t, states, StageAwaitingConfirmation)
	if confirm.Display == nil || confirm.Display.Recipient != h.tx.Display.Recipient {
		t.Fatalf("awaiting-confirmation state missing display info: %+v", confirm.Display)
	}

	h.flow.ConfirmOnDevice()
	await(t, states, StageSigning)

	final := await(t, states, StageComplete)
	if len(final.Result.Signature) == 0 {
		t.Fatal("complete state carries no signature")
	}
	if final.Result.Scheme != "secp256k1" {
		t.Fatalf("scheme = %q, want secp256k1", final.Result.Scheme)
	}

	if _, ok := <-states; ok {
		t.Fatal("state stream still open after completion")
	}
}

// A device attached mid-wait is picked up on the next poll.
func TestWaitsForDeviceToAppear(t *testing.T) {
	h := newHarness(t, []Option{WithDiscoveryWait(30, 10*time.Millisecond)}, softdevice.WithAutoApprove())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := h.flow.Start(ctx, h.account, h.tx)
	await(t, states, StageConnecting)

	// The flow turns scanning on itself; plug in a few polls later.
	time.Sleep(35 * time.Millisecond)
	if !h.registry.Scanning() {
		t.Fatal("flow did not start scanning while waiting")
	}
	h.soft.Plug(h.registry)

	await(t, states, StageAwaitingConfirmation)
	h.flow.ConfirmOnDevice()
	await(t, states, StageComplete)
}

// An exhausted discovery wait surfaces ErrDeviceNotFound, and a retry
// after attaching the device runs the whole sequence again.
func TestDiscoveryTimeoutThenRetry(t *testing.T) {
	h := newHarness(t, []Option{WithDiscoveryWait(3, 5*time.Millisecond)}, softdevice.WithAutoApprove())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := h.flow.Start(ctx, h.account, h.tx)

	errState := await(t, states, StageError)
	if !errors.Is(errState.Err, ErrDeviceNotFound) {
		t.Fatalf("err = %v, want ErrDeviceNotFound", errState.Err)
	}

	h.soft.Plug(h.registry)
	h.flow.Retry()

	await(t, states, StageConnecting)
	await(t, states, StageAwaitingConfirmation)
	h.flow.ConfirmOnDevice()
	await(t, states, StageComplete)
}

// Cancellation during the discovery wait ends the stream within one
// poll interval instead of running out the full window.
func TestCancellationDuringWait(t *testing.T) {
	h := newHarness(t, []Option{WithDiscoveryWait(30, 50*time.Millisecond)})

	ctx, cancel := context.WithCancel(context.Background())
	states := h.flow.Start(ctx, h.account, h.tx)
	await(t, states, StageConnecting)

	cancel()

	select {
	case _, ok := <-states:
		if ok {
			// Drain any in-flight emit; the next read must be a close.
			if _, ok := <-states; ok {
				t.Fatal("stream still open after cancellation")
			}
		}
	case <-time.After(2 * 50 * time.Millisecond):
		t.Fatal("stream not closed within a poll interval of cancellation")
	}
}

// A rejection on the device passes through as ErrDeviceRejected, not a
// generic failure.
func TestDeviceRejectionPassesThrough(t *testing.T) {
	h := newHarness(t, []Option{WithDiscoveryWait(1, time.Hour)})
	h.registry.StartScanning()
	h.soft.Plug(h.registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := h.flow.Start(ctx, h.account, h.tx)
	await(t, states, StageAwaitingConfirmation)
	h.flow.ConfirmOnDevice()
	await(t, states, StageSigning)

	// StageSigning is emitted just before the device blocks on its
	// button; keep pressing reject until the flow reports it.
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				h.soft.Reject()
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()

	errState := await(t, states, StageError)
	close(done)

	if !errors.Is(errState.Err, signer.ErrDeviceRejected) {
		t.Fatalf("err = %v, want ErrDeviceRejected", errState.Err)
	}
}
