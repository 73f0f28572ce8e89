// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package tui renders an air-gapped signing round trip in the
// terminal: animated request QR codes out, pasted signature frames
// back in.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/skip2/go-qrcode"

	"github.com/coldpath-wallet/coldpath/internal/airgap"
)

// Model is the cpqr application model.
type Model struct {
	flow   *airgap.Flow
	states <-chan airgap.State
	fps    int

	// Pre-rendered terminal QR art, one entry per frame.
	qrFrames []string
	tick     int

	phase     airgap.Phase
	progress  airgap.Progress
	signature []byte
	lastErr   error

	// input collects the signature frame being pasted or typed.
	input    string
	inputErr string

	width  int
	height int
}

// InitialModel builds the model for one outbound request.
func InitialModel(req airgap.Request, fps int) (Model, error) {
	flow := airgap.NewFlow(req)
	states, err := flow.Begin()
	if err != nil {
		return Model{}, err
	}

	qrFrames, err := renderQRFrames(flow.Frames())
	if err != nil {
		return Model{}, err
	}

	return Model{
		flow:     flow,
		states:   states,
		fps:      fps,
		qrFrames: qrFrames,
		phase:    airgap.PhaseDisplayRequest,
	}, nil
}

// renderQRFrames turns each frame payload into half-block terminal QR
// art up front, so the animation loop only swaps strings.
func renderQRFrames(frames []string) ([]string, error) {
	art := make([]string, len(frames))
	for i, frame := range frames {
		code, err := qrcode.New(frame, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("rendering QR frame %d: %w", i, err)
		}
		art[i] = code.ToSmallString(false)
	}
	return art, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.fps), waitForStateCmd(m.states))
}
