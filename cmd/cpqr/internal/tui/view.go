// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package tui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/coldpath-wallet/coldpath/internal/airgap"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// View renders the current phase.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("coldpath air-gap signing"))
	b.WriteString("\n")

	switch m.phase {
	case airgap.PhaseDisplayRequest:
		m.renderDisplay(&b)
	case airgap.PhaseScanSignature:
		m.renderScan(&b)
	case airgap.PhaseProcessing:
		b.WriteString("Processing signature...\n")
	case airgap.PhaseComplete:
		m.renderComplete(&b)
	case airgap.PhaseError:
		m.renderError(&b)
	}
	return b.String()
}

func (m Model) renderDisplay(b *strings.Builder) {
	total := len(m.qrFrames)
	if total == 0 {
		b.WriteString(errorStyle.Render("no frames to display"))
		b.WriteString("\n")
		return
	}

	current := m.tick % total
	b.WriteString(m.qrFrames[current])
	b.WriteString("\n")

	if total > 1 {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("frame %d/%d", current+1, total)))
		b.WriteString("\n")
	}
	b.WriteString(subtitleStyle.Render("Scan with the signing device, then press 's' when it shows the signature. 'q' quits."))
	b.WriteString("\n")
}

func (m Model) renderScan(b *strings.Builder) {
	b.WriteString("Paste each signature frame from the device and press enter.\n\n")

	if m.progress.Total > 0 {
		b.WriteString(progressStyle.Render(fmt.Sprintf("received %d/%d frames", m.progress.Received, m.progress.Total)))
		b.WriteString("\n")
	}

	b.WriteString(inputStyle.Render(truncate(m.input, 60) + "█"))
	b.WriteString("\n")
}

func (m Model) renderComplete(b *strings.Builder) {
	b.WriteString(successStyle.Render("✓ Signature received"))
	b.WriteString("\n\n")
	b.WriteString(hex.EncodeToString(m.signature))
	b.WriteString("\n\n")
	b.WriteString(subtitleStyle.Render("'q' quits."))
	b.WriteString("\n")
}

func (m Model) renderError(b *strings.Builder) {
	b.WriteString(errorStyle.Render("✗ " + errText(m.lastErr)))
	b.WriteString("\n\n")
	b.WriteString(subtitleStyle.Render("'r' retries with the same request, 'q' quits."))
	b.WriteString("\n")
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
