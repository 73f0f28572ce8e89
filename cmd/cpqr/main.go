// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// cpqr drives the QR leg of air-gapped signing.
//
// In display mode (the default) it animates the request as QR codes
// and collects the scanned signature frames. With -decode it plays
// the other side: reads request frames from stdin, reassembles them
// and prints the decoded request.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/coldpath-wallet/coldpath/cmd/cpqr/internal/tui"
	"github.com/coldpath-wallet/coldpath/internal/airgap"
	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/config"
	"github.com/coldpath-wallet/coldpath/internal/version"
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Printf("cpqr %s\n", version.String())
			os.Exit(0)
		}
	}

	dataDir := flag.String("d", "", "Data directory (or set COLDPATH_DATA)")
	chainName := flag.String("chain", "ethereum", "Chain the request targets")
	reqType := flag.String("type", "signTransaction", "Request type (signTransaction, signMessage, signTypedData, signPSBT)")
	payloadHex := flag.String("payload", "", "Request payload as hex")
	payloadFile := flag.String("payload-file", "", "Read the request payload from a file")
	fps := flag.Int("fps", 0, "Animation frames per second (0 = config value)")
	decode := flag.Bool("decode", false, "Decode request frames from stdin instead of displaying")
	flag.Parse()

	if *decode {
		if err := runDecode(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	chain := chains.Chain(*chainName)
	if !chain.Valid() {
		fmt.Fprintf(os.Stderr, "Error: unknown chain %q\n", *chainName)
		os.Exit(1)
	}

	payload, err := readPayload(*payloadHex, *payloadFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	req, err := airgap.NewRequest(airgap.RequestType(*reqType), chain, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load(config.DataDir(*dataDir))
	frameRate := cfg.AirGap.FrameRate
	if *fps > 0 {
		frameRate = *fps
	}

	model, err := tui.InitialModel(req, frameRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func readPayload(payloadHex, payloadFile string) ([]byte, error) {
	switch {
	case payloadHex != "" && payloadFile != "":
		return nil, fmt.Errorf("use -payload or -payload-file, not both")
	case payloadHex != "":
		return hex.DecodeString(payloadHex)
	case payloadFile != "":
		return os.ReadFile(payloadFile)
	default:
		return nil, fmt.Errorf("a payload is required (-payload or -payload-file)")
	}
}

// runDecode reassembles request frames read one per line and prints
// the decoded request.
func runDecode(in *os.File) error {
	decoder := airgap.NewDecoder()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		payload, err := decoder.Submit(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ frame rejected: %v\n", err)
			continue
		}

		progress := decoder.Progress()
		if payload == nil {
			fmt.Printf("received %d/%d frames\n", progress.Received, progress.Total)
			continue
		}

		req, err := airgap.DecodeRequest(payload)
		if err != nil {
			return fmt.Errorf("reassembled request invalid: %w", err)
		}

		fmt.Printf("✓ request reassembled\n")
		fmt.Printf("  type:     %s\n", req.Type)
		fmt.Printf("  chain:    %s\n", req.Chain)
		fmt.Printf("  payload:  %s\n", hex.EncodeToString(req.Payload))
		fmt.Printf("  checksum: %s\n", req.Checksum)
		return nil
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("input ended before all frames arrived")
}
