// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package link abstracts the USB/Bluetooth byte pipe to a signer
// device. Vendor wire protocols (APDU framing and friends) live behind
// the Transport interface; coldpath only needs dial, exchange, status
// and close semantics.
package link

import (
	"context"
	"errors"
)

// Sentinel errors for link failures.
var (
	// ErrConnectionFailed is returned when the handshake cannot complete.
	ErrConnectionFailed = errors.New("connection to device failed")

	// ErrLinkDropped is returned when an open link disappears mid-session.
	ErrLinkDropped = errors.New("device link dropped")
)

// Status is the handshake result reported by a connected device.
type Status struct {
	// Ready is true once the device can accept address and signing
	// requests.
	Ready bool `json:"ready"`

	// RequiresApp names the on-device application the user must open
	// first. Set only when Ready is false for that reason.
	RequiresApp string `json:"requires_app,omitempty"`
}

// StatusReady is the plain "device is usable" status.
func StatusReady() Status {
	return Status{Ready: true}
}

// StatusRequiresApp reports that the device needs the named app open.
func StatusRequiresApp(app string) Status {
	return Status{RequiresApp: app}
}

// Transport is a dialed byte pipe to one device.
//
// Implementations wrap a vendor driver; they must be safe to Close
// more than once and must unblock pending Exchange calls when the
// context is cancelled.
type Transport interface {
	// Exchange sends one request and waits for the device's response.
	Exchange(ctx context.Context, request []byte) ([]byte, error)

	// Status performs the handshake/status query.
	Status(ctx context.Context) (Status, error)

	// Close tears the link down.
	Close() error
}

// Dialer opens a Transport to a discovered device, performing the
// link-layer handshake. It is injected into the session manager so
// tests and the soft device can substitute their own links.
type Dialer func(ctx context.Context, deviceID string) (Transport, error)
