// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package airgap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// SingleFrameLimit is the serialized size below which a request
	// fits one static code.
	SingleFrameLimit = 500

	// ChunkSize is the per-frame payload size for multi-part encoding.
	ChunkSize = 300
)

// MultiPartFrame is one frame of a chunked transfer.
//
// Checksum repeats the whole-payload checksum on every frame so that
// any single scanned frame proves which in-progress transfer it
// belongs to, wherever in the cycle scanning starts. The JSON field
// names are the interop contract.
type MultiPartFrame struct {
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Data     string `json:"data"`
	Checksum string `json:"checksum"`
}

// Encode renders the request as the frame strings to display.
//
// Requests that serialize under SingleFrameLimit bytes become a single
// bare base64 frame with no animation. Larger requests are split into
// ChunkSize-byte chunks, one MultiPartFrame JSON string each.
// Encoding is deterministic: the same request always yields the same
// frames.
func Encode(req Request) ([]string, error) {
	serialized, err := req.marshal()
	if err != nil {
		return nil, err
	}

	if len(serialized) < SingleFrameLimit {
		return []string{base64.StdEncoding.EncodeToString(serialized)}, nil
	}

	checksum := PayloadChecksum(serialized)
	total := (len(serialized) + ChunkSize - 1) / ChunkSize

	frames := make([]string, 0, total)
	for i := 0; i < total; i++ {
		start := i * ChunkSize
		end := start + ChunkSize
		if end > len(serialized) {
			end = len(serialized)
		}

		frame := MultiPartFrame{
			Index:    i,
			Total:    total,
			Data:     base64.StdEncoding.EncodeToString(serialized[start:end]),
			Checksum: checksum,
		}
		encoded, err := json.Marshal(frame)
		if err != nil {
			return nil, fmt.Errorf("serialize frame %d: %w", i, err)
		}
		frames = append(frames, string(encoded))
	}
	return frames, nil
}
