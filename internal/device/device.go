// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package device models external signer devices and tracks which ones
// are currently reachable.
//
// Vendor differences (display names, which on-device app a chain
// needs) are carried as data on Type rather than behind interfaces, so
// adding a model is a table entry, not a new implementation.
package device

import (
	"fmt"

	"github.com/coldpath-wallet/coldpath/internal/chains"
)

// Vendor identifies a device manufacturer.
type Vendor string

const (
	VendorLedger   Vendor = "ledger"
	VendorTrezor   Vendor = "trezor"
	VendorKeystone Vendor = "keystone"
)

// Connection is the link type a device was discovered over.
type Connection string

const (
	ConnectionUSB       Connection = "usb"
	ConnectionBluetooth Connection = "bluetooth"
	// ConnectionAirGap marks devices that are never electrically linked;
	// they exist only as a target for the QR transport.
	ConnectionAirGap Connection = "airgap"
)

// Type describes a device vendor + model. All behavioral differences
// between models live here as data.
type Type struct {
	Vendor Vendor `json:"vendor"`
	Model  string `json:"model"`
}

// Key returns the stable identity string used for account ownership
// checks and registry lookups, e.g. "ledger/nano-x".
func (t Type) Key() string {
	return string(t.Vendor) + "/" + t.Model
}

// DisplayName returns the marketing name for the model.
func (t Type) DisplayName() string {
	if name, ok := displayNames[t.Key()]; ok {
		return name
	}
	return fmt.Sprintf("%s %s", t.Vendor, t.Model)
}

// RequiredApp returns the name of the on-device application that must
// be open before the device will answer requests for the given chain.
// Empty means the device has no per-chain app concept.
func (t Type) RequiredApp(chain chains.Chain) string {
	if t.Vendor != VendorLedger {
		// Trezor and Keystone firmware handle all chains natively.
		return ""
	}
	return chain.DisplayName()
}

// AirGapOnly reports whether the device can only be reached through
// the optical QR transport.
func (t Type) AirGapOnly() bool {
	return t.Vendor == VendorKeystone
}

// Known device models.
var (
	LedgerNanoS       = Type{Vendor: VendorLedger, Model: "nano-s"}
	LedgerNanoX       = Type{Vendor: VendorLedger, Model: "nano-x"}
	TrezorOne         = Type{Vendor: VendorTrezor, Model: "one"}
	TrezorModelT      = Type{Vendor: VendorTrezor, Model: "model-t"}
	KeystonePro       = Type{Vendor: VendorKeystone, Model: "pro"}
	KeystoneEssential = Type{Vendor: VendorKeystone, Model: "essential"}
)

var displayNames = map[string]string{
	LedgerNanoS.Key():       "Ledger Nano S",
	LedgerNanoX.Key():       "Ledger Nano X",
	TrezorOne.Key():         "Trezor One",
	TrezorModelT.Key():      "Trezor Model T",
	KeystonePro.Key():       "Keystone Pro",
	KeystoneEssential.Key(): "Keystone Essential",
}

// Discovered is an ephemeral record of a reachable device. It lives
// only as long as the link layer can see the device.
type Discovered struct {
	// ID is the link-layer identity (USB serial, BLE address).
	ID string `json:"id"`

	Type Type `json:"type"`

	// Name is the optional user-assigned device name, if advertised.
	Name string `json:"name,omitempty"`

	Connection Connection `json:"connection"`
}

// Label returns the best human-readable name for the device.
func (d Discovered) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Type.DisplayName()
}
