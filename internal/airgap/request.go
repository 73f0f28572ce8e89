// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package airgap moves signing requests to, and signatures back from,
// a device with no electrical or radio link. Data crosses the trust
// boundary only as optical codes.
//
// The outbound side serializes a request, chunks it when it exceeds
// one code's capacity, and cycles the frames at a fixed rate; the
// inbound side reassembles scanned frames by index and verifies the
// whole-payload checksum. The frame JSON field names (index, total,
// data, checksum) are a wire contract shared with device firmware and
// must not change.
package airgap

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coldpath-wallet/coldpath/internal/chains"
)

// Sentinel errors for the optical transport.
var (
	// ErrInvalidQRFormat indicates a scanned code that is neither a
	// base64 payload nor a valid multi-part frame.
	ErrInvalidQRFormat = errors.New("invalid QR code format")

	// ErrChecksumMismatch indicates a frame that belongs to a
	// different transfer, or a reassembled payload that fails its
	// checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrFrameConflict indicates a frame whose total disagrees with
	// frames already collected for the same transfer.
	ErrFrameConflict = errors.New("conflicting multi-part frame")
)

// RequestType enumerates what the air-gapped device is asked to sign.
type RequestType string

const (
	SignTransaction RequestType = "signTransaction"
	SignMessage     RequestType = "signMessage"
	SignTypedData   RequestType = "signTypedData"
	SignPSBT        RequestType = "signPSBT"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case SignTransaction, SignMessage, SignTypedData, SignPSBT:
		return true
	}
	return false
}

// Request is one immutable signing request bound for the air-gapped
// device. Construct it with NewRequest so the checksum is always
// consistent with the payload.
type Request struct {
	Type     RequestType  `json:"type"`
	Chain    chains.Chain `json:"chain"`
	Payload  []byte       `json:"payload"`
	Checksum string       `json:"checksum"`
}

// NewRequest builds a request and computes its payload checksum.
func NewRequest(reqType RequestType, chain chains.Chain, payload []byte) (Request, error) {
	if !reqType.Valid() {
		return Request{}, fmt.Errorf("unknown request type %q", reqType)
	}
	if !chain.Valid() {
		return Request{}, fmt.Errorf("unknown chain %q", chain)
	}
	if len(payload) == 0 {
		return Request{}, fmt.Errorf("empty payload")
	}
	return Request{
		Type:     reqType,
		Chain:    chain,
		Payload:  payload,
		Checksum: PayloadChecksum(payload),
	}, nil
}

// PayloadChecksum returns the transfer checksum: the first 8 bytes of
// SHA-256 over the payload, hex-encoded.
func PayloadChecksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

// marshal serializes the request. Deterministic for a given request,
// so re-encoding after an error yields identical frames.
func (r Request) marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("serialize request: %w", err)
	}
	return data, nil
}
