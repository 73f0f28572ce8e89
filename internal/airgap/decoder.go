// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package airgap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/coldpath-wallet/coldpath/internal/util"
)

// Progress describes a multi-part reassembly in flight.
type Progress struct {
	Received int
	Total    int
}

// Complete reports whether all frames have been collected.
func (p Progress) Complete() bool {
	return p.Total > 0 && p.Received == p.Total
}

// Decoder reassembles scanned codes into the payload the device sent
// back.
//
// Both directions of the transport use the same framing, so the
// decoder accepts either a single bare base64 code (small payloads)
// or a stream of MultiPartFrame JSON codes in any order, with
// duplicates. One Decoder handles one transfer; create a new one per
// scan session.
type Decoder struct {
	mu       sync.Mutex
	total    int
	checksum string
	parts    map[int][]byte
	result   []byte
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{parts: make(map[int][]byte)}
}

// Submit feeds one scanned code to the decoder.
//
// The returned payload is non-nil exactly once, when the transfer
// completes. A code that is valid base64 but not frame JSON completes
// the transfer immediately (single-frame transfer). Codes that parse
// as neither return ErrInvalidQRFormat.
func (d *Decoder) Submit(code string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.result != nil {
		// Transfer already complete; stray frames are ignored.
		return nil, nil
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidQRFormat
	}

	// Multi-part frames are JSON objects; everything else must be a
	// bare base64 payload.
	if strings.HasPrefix(code, "{") {
		return d.submitFrame(code)
	}

	payload, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQRFormat, err)
	}
	d.result = payload
	return payload, nil
}

func (d *Decoder) submitFrame(code string) ([]byte, error) {
	var frame MultiPartFrame
	if err := json.Unmarshal([]byte(code), &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQRFormat, err)
	}
	if frame.Total <= 0 || frame.Index < 0 || frame.Index >= frame.Total || frame.Checksum == "" {
		return nil, fmt.Errorf("%w: frame %d/%d", ErrInvalidQRFormat, frame.Index, frame.Total)
	}

	chunk, err := base64.StdEncoding.DecodeString(frame.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: frame data: %v", ErrInvalidQRFormat, err)
	}

	// First frame fixes the transfer identity; later frames must agree.
	if d.total == 0 {
		d.total = frame.Total
		d.checksum = frame.Checksum
	} else {
		if frame.Checksum != d.checksum {
			return nil, fmt.Errorf("%w: frame belongs to another transfer", ErrChecksumMismatch)
		}
		if frame.Total != d.total {
			return nil, fmt.Errorf("%w: total %d != %d", ErrFrameConflict, frame.Total, d.total)
		}
	}

	if _, dup := d.parts[frame.Index]; dup {
		return nil, nil // duplicate frame, nothing new
	}
	d.parts[frame.Index] = chunk
	util.Debug("airgap decoder: frame received", "index", frame.Index, "have", len(d.parts), "total", d.total)

	if len(d.parts) < d.total {
		return nil, nil
	}

	// All frames present: reassemble in index order and verify.
	var payload []byte
	for i := 0; i < d.total; i++ {
		chunk, ok := d.parts[i]
		if !ok {
			return nil, fmt.Errorf("%w: missing frame %d", ErrFrameConflict, i)
		}
		payload = append(payload, chunk...)
	}
	if PayloadChecksum(payload) != d.checksum {
		return nil, fmt.Errorf("%w: reassembled payload", ErrChecksumMismatch)
	}

	d.result = payload
	return payload, nil
}

// Progress reports how much of the transfer has been collected.
// For single-frame transfers Total is 1 once the code is scanned.
func (d *Decoder) Progress() Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.result != nil && d.total == 0 {
		return Progress{Received: 1, Total: 1}
	}
	return Progress{Received: len(d.parts), Total: d.total}
}

// Result returns the reassembled payload, if complete.
func (d *Decoder) Result() ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, d.result != nil
}

// DecodeRequest parses a payload reassembled by the receiving side
// back into a Request and verifies its internal checksum. Device
// firmware uses the same logic before showing the request to the user.
func DecodeRequest(payload []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidQRFormat, err)
	}
	if req.Checksum != PayloadChecksum(req.Payload) {
		return Request{}, fmt.Errorf("%w: request payload", ErrChecksumMismatch)
	}
	if !req.Type.Valid() {
		return Request{}, fmt.Errorf("%w: request type %q", ErrInvalidQRFormat, req.Type)
	}
	return req, nil
}
