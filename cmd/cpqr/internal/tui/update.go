// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/coldpath-wallet/coldpath/internal/airgap"
)

// Update handles all TUI events and messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.tick++
		return m, tickCmd(m.fps)

	case FlowStateMsg:
		return m.handleFlowState(airgap.State(msg))

	case FlowClosedMsg:
		// Stream ends after completion; keep the final screen up
		// until the user quits.
		return m, nil
	}
	return m, nil
}

func (m Model) handleFlowState(state airgap.State) (tea.Model, tea.Cmd) {
	m.phase = state.Phase

	switch state.Phase {
	case airgap.PhaseScanSignature:
		m.progress = state.Progress
	case airgap.PhaseComplete:
		m.signature = state.Signature
	case airgap.PhaseError:
		m.lastErr = state.Err
	}
	return m, waitForStateCmd(m.states)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		if m.phase == airgap.PhaseScanSignature && m.input != "" {
			code := m.input
			m.input = ""
			return m, submitCodeCmd(m.flow, code)
		}
		return m, nil
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	}

	// While collecting a signature frame, every printable key is input.
	if m.phase == airgap.PhaseScanSignature {
		switch msg.Type {
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		case tea.KeySpace:
			m.input += " "
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "s":
		if m.phase == airgap.PhaseDisplayRequest {
			m.flow.StartScanning()
			m.input = ""
		}
		return m, nil

	case "r":
		if m.phase == airgap.PhaseError {
			states, err := m.flow.Retry()
			if err != nil {
				m.lastErr = err
				return m, nil
			}
			m.states = states
			m.lastErr = nil
			m.input = ""
			return m, waitForStateCmd(m.states)
		}
		return m, nil
	}
	return m, nil
}
