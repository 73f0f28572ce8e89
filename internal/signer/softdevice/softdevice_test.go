// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package softdevice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/derivation"
	"github.com/coldpath-wallet/coldpath/internal/device"
	"github.com/coldpath-wallet/coldpath/internal/signer"
)

// The BIP-39 reference test mnemonic.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestDevice(t *testing.T, opts ...Option) *SoftDevice {
	t.Helper()
	dev, err := New(testMnemonic, device.Discovered{
		ID:         "soft-1",
		Type:       device.LedgerNanoX,
		Connection: device.ConnectionUSB,
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return dev
}

func TestNewRejectsBadMnemonic(t *testing.T) {
	_, err := New("not a mnemonic", device.Discovered{ID: "x"})
	if err == nil {
		t.Fatal("invalid mnemonic accepted")
	}
}

func TestDeriveEthereumAddress(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.Default(chains.Ethereum)

	result, err := dev.DeriveAddress(context.Background(), nil, path, chains.Ethereum, false)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}

	// Known BIP-44 vector for the reference mnemonic at m/44'/60'/0'/0/0.
	const want = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	if result.Address != want {
		t.Errorf("address = %s, want %s", result.Address, want)
	}
	if len(result.PublicKey) != 65 {
		t.Errorf("public key length = %d, want 65 (uncompressed)", len(result.PublicKey))
	}
	if !result.Path.Equal(path) {
		t.Errorf("result path = %s, want %s", result.Path, path)
	}
}

func TestDeriveBitcoinAddress(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.Default(chains.Bitcoin)

	result, err := dev.DeriveAddress(context.Background(), nil, path, chains.Bitcoin, false)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if !strings.HasPrefix(result.Address, "1") {
		t.Errorf("P2PKH address should start with 1, got %s", result.Address)
	}
}

func TestDeriveAlgorandAddress(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.Default(chains.Algorand)

	result, err := dev.DeriveAddress(context.Background(), nil, path, chains.Algorand, false)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if len(result.Address) != 58 {
		t.Errorf("algorand address length = %d, want 58", len(result.Address))
	}
	if len(result.PublicKey) != 32 {
		t.Errorf("ed25519 public key length = %d, want 32", len(result.PublicKey))
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.Default(chains.Ethereum)

	first, err := dev.DeriveAddress(context.Background(), nil, path, chains.Ethereum, false)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	second, err := dev.DeriveAddress(context.Background(), nil, path, chains.Ethereum, false)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if first.Address != second.Address {
		t.Errorf("addresses differ: %s vs %s", first.Address, second.Address)
	}
}

func TestDeriveRejectsCrossChainPath(t *testing.T) {
	dev := newTestDevice(t)
	_, err := dev.DeriveAddress(context.Background(), nil, derivation.Default(chains.Ethereum), chains.Bitcoin, false)
	if !errors.Is(err, derivation.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
}

func TestDeriveRejectsUnhardenedEd25519(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.MustParse("m/44'/283'/0'/0/0")
	_, err := dev.DeriveAddress(context.Background(), nil, path, chains.Algorand, false)
	if !errors.Is(err, derivation.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
}

func TestVerifyEmitsDisplayEvent(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.Default(chains.Ethereum)

	result, err := dev.DeriveAddress(context.Background(), nil, path, chains.Ethereum, true)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}

	select {
	case shown := <-dev.Displays():
		if shown.Address != result.Address {
			t.Errorf("displayed %s, returned %s", shown.Address, result.Address)
		}
	case <-time.After(time.Second):
		t.Fatal("no display event for verified derivation")
	}
}

func TestSignWaitsForApproval(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.Default(chains.Ethereum)
	tx := signer.Transaction{RawData: []byte("payload")}

	done := make(chan error, 1)
	var result signer.SignatureResult
	go func() {
		var err error
		result, err = dev.Sign(context.Background(), nil, path, tx, chains.Ethereum)
		done <- err
	}()

	// Give Sign a moment to register the pending request, then approve.
	time.Sleep(20 * time.Millisecond)
	dev.Approve()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sign did not complete after approval")
	}

	if len(result.Signature) == 0 {
		t.Error("empty signature")
	}
	if result.Scheme != "secp256k1-ecdsa" {
		t.Errorf("scheme = %s", result.Scheme)
	}
}

func TestSignRejection(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.Default(chains.Ethereum)

	done := make(chan error, 1)
	go func() {
		_, err := dev.Sign(context.Background(), nil, path, signer.Transaction{RawData: []byte("p")}, chains.Ethereum)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	dev.Reject()

	select {
	case err := <-done:
		if !errors.Is(err, signer.ErrDeviceRejected) {
			t.Fatalf("Sign = %v, want ErrDeviceRejected", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sign did not return after rejection")
	}
}

func TestSignCancellation(t *testing.T) {
	dev := newTestDevice(t)
	path := derivation.Default(chains.Ethereum)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := dev.Sign(ctx, nil, path, signer.Transaction{RawData: []byte("p")}, chains.Ethereum)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Sign = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sign did not return after cancel")
	}
}

func TestSignAutoApprove(t *testing.T) {
	dev := newTestDevice(t, WithAutoApprove())
	path := derivation.Default(chains.Algorand)

	result, err := dev.Sign(context.Background(), nil, path, signer.Transaction{RawData: []byte("algo tx")}, chains.Algorand)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if result.Scheme != "ed25519" {
		t.Errorf("scheme = %s, want ed25519", result.Scheme)
	}
	if len(result.Signature) != 64 {
		t.Errorf("ed25519 signature length = %d, want 64", len(result.Signature))
	}
}

func TestBusyDeviceRefuses(t *testing.T) {
	dev := newTestDevice(t)
	dev.SetBusy(true)

	_, err := dev.DeriveAddress(context.Background(), nil, derivation.Default(chains.Ethereum), chains.Ethereum, false)
	if !errors.Is(err, signer.ErrDeviceBusy) {
		t.Fatalf("DeriveAddress = %v, want ErrDeviceBusy", err)
	}

	_, err = dev.Sign(context.Background(), nil, derivation.Default(chains.Ethereum), signer.Transaction{RawData: []byte("p")}, chains.Ethereum)
	if !errors.Is(err, signer.ErrDeviceBusy) {
		t.Fatalf("Sign = %v, want ErrDeviceBusy", err)
	}
}

func TestTransportStatusRequiresApp(t *testing.T) {
	dev := newTestDevice(t, WithRequiredApp("Ethereum"))
	transport, err := dev.Dialer()(context.Background(), "soft-1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	status, err := transport.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Ready || status.RequiresApp != "Ethereum" {
		t.Fatalf("status = %+v, want requires Ethereum app", status)
	}

	dev.OpenApp()
	status, err = transport.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Ready {
		t.Fatalf("status = %+v, want ready after OpenApp", status)
	}
}

func TestDialerRejectsUnknownDevice(t *testing.T) {
	dev := newTestDevice(t)
	if _, err := dev.Dialer()(context.Background(), "other"); err == nil {
		t.Fatal("dial to unknown id succeeded")
	}
}
