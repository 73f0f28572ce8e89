// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package device

import (
	"testing"
	"time"

	"github.com/coldpath-wallet/coldpath/internal/chains"
)

func testDevice(id string) Discovered {
	return Discovered{ID: id, Type: LedgerNanoX, Connection: ConnectionUSB}
}

func TestAnnounceAndLookup(t *testing.T) {
	r := NewRegistry()
	r.StartScanning()

	r.Announce(testDevice("dev-1"))
	r.Announce(testDevice("dev-2"))

	if got := len(r.Snapshot()); got != 2 {
		t.Fatalf("Snapshot() has %d devices, want 2", got)
	}
	dev, ok := r.Lookup("dev-1")
	if !ok || dev.ID != "dev-1" {
		t.Fatalf("Lookup(dev-1) = %v, %v", dev, ok)
	}
	if _, ok := r.Lookup("dev-9"); ok {
		t.Error("Lookup of unknown id succeeded")
	}
}

func TestAnnounceDeduplicatesByID(t *testing.T) {
	r := NewRegistry()
	r.StartScanning()

	events, cancel := r.Subscribe()
	defer cancel()

	r.Announce(testDevice("dev-1"))
	r.Announce(testDevice("dev-1"))

	if got := len(r.Snapshot()); got != 1 {
		t.Fatalf("Snapshot() has %d devices, want 1", got)
	}

	select {
	case ev := <-events:
		if ev.Kind != EventArrived || ev.Device.ID != "dev-1" {
			t.Fatalf("unexpected event %v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no arrival event delivered")
	}

	// The re-announcement must not produce a second arrival.
	select {
	case ev := <-events:
		t.Fatalf("duplicate event delivered: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAnnounceDroppedWhenNotScanning(t *testing.T) {
	r := NewRegistry()
	r.Announce(testDevice("dev-1"))
	if got := len(r.Snapshot()); got != 0 {
		t.Fatalf("Snapshot() has %d devices while not scanning, want 0", got)
	}
}

func TestStartScanningIdempotent(t *testing.T) {
	r := NewRegistry()
	r.StartScanning()
	r.StartScanning()
	if !r.Scanning() {
		t.Fatal("registry not scanning")
	}

	r.Announce(testDevice("dev-1"))
	if got := len(r.Snapshot()); got != 1 {
		t.Fatalf("Snapshot() has %d devices, want 1", got)
	}
}

func TestStopScanningClearsAndNotifies(t *testing.T) {
	r := NewRegistry()
	r.StartScanning()
	r.Announce(testDevice("dev-1"))

	events, cancel := r.Subscribe()
	defer cancel()

	r.StopScanning()

	if got := len(r.Snapshot()); got != 0 {
		t.Fatalf("Snapshot() has %d devices after stop, want 0", got)
	}
	select {
	case ev := <-events:
		if ev.Kind != EventRemoved || ev.Device.ID != "dev-1" {
			t.Fatalf("unexpected event %v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no removal event delivered")
	}
}

func TestWithdraw(t *testing.T) {
	r := NewRegistry()
	r.StartScanning()
	r.Announce(testDevice("dev-1"))

	events, cancel := r.Subscribe()
	defer cancel()

	r.Withdraw("dev-1")
	r.Withdraw("dev-1") // second withdraw is a no-op

	if _, ok := r.Lookup("dev-1"); ok {
		t.Fatal("device still present after Withdraw")
	}
	select {
	case ev := <-events:
		if ev.Kind != EventRemoved {
			t.Fatalf("unexpected event %v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no removal event delivered")
	}
	select {
	case ev := <-events:
		t.Fatalf("duplicate removal delivered: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeCancelCloses(t *testing.T) {
	r := NewRegistry()
	events, cancel := r.Subscribe()
	cancel()
	cancel() // double cancel must be safe

	if _, open := <-events; open {
		t.Fatal("channel still open after cancel")
	}
}

func TestRequiredApp(t *testing.T) {
	if app := LedgerNanoX.RequiredApp(chains.Ethereum); app != "Ethereum" {
		t.Errorf("ledger ethereum app = %q", app)
	}
	if app := TrezorModelT.RequiredApp(chains.Ethereum); app != "" {
		t.Errorf("trezor app = %q, want empty", app)
	}
}

func TestAirGapOnly(t *testing.T) {
	if !KeystonePro.AirGapOnly() {
		t.Error("keystone should be air-gap only")
	}
	if LedgerNanoS.AirGapOnly() {
		t.Error("ledger should not be air-gap only")
	}
}
