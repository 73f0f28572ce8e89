// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package signer

import "errors"

// Sentinel errors for device signing operations.
var (
	// ErrDeviceBusy indicates the device is servicing another request.
	ErrDeviceBusy = errors.New("device is busy")

	// ErrDeviceRejected indicates the user declined the operation on
	// the device itself. This is a security decision, not a transient
	// failure; callers must not present it as retryable.
	ErrDeviceRejected = errors.New("request rejected on device")

	// ErrNoProvider indicates no signer backend is registered for the
	// device vendor.
	ErrNoProvider = errors.New("no signer provider for device vendor")
)
