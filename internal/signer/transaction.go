// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package signer

// DisplayInfo is the caller-supplied, human-auditable projection of a
// transaction. It is consumed read-only for UI display. It must be
// derived by the caller from the actual transaction bytes and is never
// a substitute for on-device confirmation.
type DisplayInfo struct {
	Type      string `json:"type"`
	Amount    string `json:"amount,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Fee       string `json:"fee,omitempty"`
	Network   string `json:"network,omitempty"`
}

// Transaction is a pending payload awaiting an external signature.
type Transaction struct {
	// RawData is the exact byte sequence the device will sign over.
	RawData []byte `json:"raw_data"`

	// Display is optional audit information for the host UI.
	Display *DisplayInfo `json:"display,omitempty"`
}
