// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/coldpath-wallet/coldpath/internal/airgap"
)

// TickMsg advances the QR animation by one frame.
type TickMsg time.Time

// FlowStateMsg carries the next flow transition.
type FlowStateMsg airgap.State

// FlowClosedMsg signals the flow's state stream ended.
type FlowClosedMsg struct{}

func tickCmd(fps int) tea.Cmd {
	if fps <= 0 {
		fps = airgap.DefaultFrameRate
	}
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForStateCmd blocks on the flow's state stream.
func waitForStateCmd(states <-chan airgap.State) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return FlowClosedMsg{}
		}
		return FlowStateMsg(state)
	}
}

// submitCodeCmd feeds one scanned code to the flow. The flow reports
// the outcome through its state stream, so the command itself returns
// nothing.
func submitCodeCmd(flow *airgap.Flow, code string) tea.Cmd {
	return func() tea.Msg {
		flow.SubmitScannedCode(context.Background(), code)
		return nil
	}
}
