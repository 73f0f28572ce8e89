// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// cpsetup pairs signing devices and runs signing flows from the
// command line. It ships with a built-in software device so the whole
// pipeline can be exercised without hardware attached.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tyler-smith/go-bip39"

	"github.com/coldpath-wallet/coldpath/internal/accounts"
	"github.com/coldpath-wallet/coldpath/internal/chains"
	"github.com/coldpath-wallet/coldpath/internal/config"
	"github.com/coldpath-wallet/coldpath/internal/device"
	"github.com/coldpath-wallet/coldpath/internal/session"
	"github.com/coldpath-wallet/coldpath/internal/setup"
	"github.com/coldpath-wallet/coldpath/internal/signer"
	"github.com/coldpath-wallet/coldpath/internal/signer/softdevice"
	"github.com/coldpath-wallet/coldpath/internal/signflow"
	"github.com/coldpath-wallet/coldpath/internal/version"
)

var stdin = bufio.NewReader(os.Stdin)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Printf("cpsetup %s\n", version.String())
			os.Exit(0)
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cpsetup - Device pairing and signing\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  cpsetup [-d path] pair <chain>\n")
		fmt.Fprintf(os.Stderr, "  cpsetup [-d path] accounts [--watch]\n")
		fmt.Fprintf(os.Stderr, "  cpsetup [-d path] sign <account-id> <payload-hex>\n")
		fmt.Fprintf(os.Stderr, "  cpsetup [-d path] remove <account-id>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		fmt.Fprintf(os.Stderr, "  -d path    Data directory (or set COLDPATH_DATA)\n")
		fmt.Fprintf(os.Stderr, "\nChains: %s\n", chainNames())
		fmt.Fprintf(os.Stderr, "\nThe software device reads its mnemonic from COLDPATH_MNEMONIC;\n")
		fmt.Fprintf(os.Stderr, "a fresh one is generated (and printed) when unset.\n")
	}

	dataDir := flag.String("d", "", "Data directory (or set COLDPATH_DATA)")
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Load(config.DataDir(*dataDir))

	store, err := accounts.OpenFileStore(cfg.AccountsPath)
	if err != nil {
		fail("opening account store: %v", err)
	}

	var cmdErr error
	switch flag.Arg(0) {
	case "pair":
		cmdErr = cmdPair(cfg, store, flag.Arg(1))
	case "accounts":
		watch := flag.Arg(1) == "--watch" || flag.Arg(1) == "-watch"
		cmdErr = cmdAccounts(store, watch)
	case "sign":
		cmdErr = cmdSign(cfg, store, flag.Arg(1), flag.Arg(2))
	case "remove":
		cmdErr = cmdRemove(store, flag.Arg(1))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fail("%v", cmdErr)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
	os.Exit(1)
}

func chainNames() string {
	var names []string
	for _, c := range chains.All() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// softRig bundles the software device with the registries and session
// manager the flows need.
type softRig struct {
	soft     *softdevice.SoftDevice
	registry *device.Registry
	sessions *session.Manager
	signers  *signer.Registry
}

func newSoftRig(chain chains.Chain, opts ...softdevice.Option) (*softRig, error) {
	mnemonic := os.Getenv("COLDPATH_MNEMONIC")
	if mnemonic == "" {
		entropy, err := bip39.NewEntropy(128)
		if err != nil {
			return nil, err
		}
		mnemonic, err = bip39.NewMnemonic(entropy)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Generated device mnemonic (set COLDPATH_MNEMONIC to reuse):\n  %s\n\n", mnemonic)
	}

	devType := device.LedgerNanoX
	soft, err := softdevice.New(mnemonic, device.Discovered{
		ID:         "soft-1",
		Type:       devType,
		Name:       devType.DisplayName(),
		Connection: device.ConnectionUSB,
	}, append([]softdevice.Option{softdevice.WithRequiredApp(chain.DisplayName())}, opts...)...)
	if err != nil {
		return nil, err
	}

	signers := signer.NewRegistry()
	signers.Register(devType.Vendor, soft)

	return &softRig{
		soft:     soft,
		registry: device.NewRegistry(),
		sessions: session.NewManager(soft.Dialer()),
		signers:  signers,
	}, nil
}

func cmdPair(cfg config.Config, store accounts.Store, chainArg string) error {
	chain := chains.Chain(chainArg)
	if !chain.Valid() {
		return fmt.Errorf("unknown chain %q (choose from: %s)", chainArg, chainNames())
	}

	rig, err := newSoftRig(chain)
	if err != nil {
		return err
	}

	flow := setup.New(rig.registry, rig.sessions, rig.signers, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := flow.Start(ctx, chain)

	for state := range states {
		switch state.Stage {
		case setup.StageDiscovery:
			fmt.Println("Scanning for devices...")
			rig.soft.Plug(rig.registry)
			flow.SelectDevice(rig.soft.Device().ID)

		case setup.StageConnecting:
			fmt.Printf("Connecting to %s...\n", state.Device.Label())

		case setup.StageSelectApp:
			fmt.Printf("Open the %s app on the device, then press enter.\n", state.App)
			if _, err := stdin.ReadString('\n'); err != nil {
				return err
			}
			rig.soft.OpenApp()
			flow.ContinueFromApp()

		case setup.StageVerifyAddress:
			fmt.Printf("\nDevice shows address:\n  %s\n  (path %s)\n\n", state.Address.Address, state.Address.Path)
			if confirm("Does the address on the device screen match? [y/N] ") {
				flow.ConfirmAddressMatches()
			} else {
				flow.RejectAddressMismatch()
			}

		case setup.StageComplete:
			fmt.Printf("✓ Paired %s account %s\n", state.Account.Chain, state.Account.ID)
			fmt.Printf("  address: %s\n", state.Account.Address)

		case setup.StageError:
			fmt.Printf("✗ %v\n", state.Err)
			return fmt.Errorf("pairing failed")
		}
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func cmdAccounts(store *accounts.FileStore, watch bool) error {
	printAccounts(store)
	if !watch {
		return nil
	}

	// Follow mode: reprint whenever another process rewrites the store.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := store.Watch(ctx); err != nil {
		return err
	}

	fmt.Println("\nWatching for changes (ctrl-c to stop)...")
	last := len(store.All())
	for {
		time.Sleep(time.Second)
		if n := len(store.All()); n != last {
			last = n
			fmt.Println()
			printAccounts(store)
		}
	}
}

func printAccounts(store accounts.Store) {
	all := store.All()
	if len(all) == 0 {
		fmt.Println("No paired accounts.")
		return
	}
	for _, acct := range all {
		fmt.Printf("%s  %-9s  %-14s  %s  (%s)\n",
			acct.ID, acct.Chain, acct.DeviceType.Key(), acct.Address, acct.Path)
	}
}

func cmdSign(cfg config.Config, store accounts.Store, accountID, payloadHex string) error {
	if accountID == "" || payloadHex == "" {
		return fmt.Errorf("usage: cpsetup sign <account-id> <payload-hex>")
	}

	acct, err := store.Get(accountID)
	if err != nil {
		return err
	}

	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return fmt.Errorf("payload is not valid hex: %w", err)
	}

	// The console enter below stands in for the on-device button, so
	// the software device approves automatically.
	rig, err := newSoftRig(acct.Chain, softdevice.WithAutoApprove())
	if err != nil {
		return err
	}
	rig.registry.StartScanning()
	rig.soft.Plug(rig.registry)
	rig.soft.OpenApp()

	flow := signflow.New(rig.registry, rig.sessions, rig.signers,
		signflow.WithDiscoveryWait(cfg.DiscoveryPolls, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tx := signer.Transaction{RawData: payload}
	states := flow.Start(ctx, acct, tx)

	for state := range states {
		switch state.Stage {
		case signflow.StageConnecting:
			fmt.Printf("Connecting to %s...\n", acct.DeviceType.DisplayName())

		case signflow.StageAwaitingConfirmation:
			fmt.Println("Review the transaction on the device, then press enter to confirm.")
			if _, err := stdin.ReadString('\n'); err != nil {
				return err
			}
			flow.ConfirmOnDevice()

		case signflow.StageSigning:
			fmt.Println("Signing...")

		case signflow.StageComplete:
			fmt.Printf("✓ Signature (%s):\n  %s\n", state.Result.Scheme, hex.EncodeToString(state.Result.Signature))

		case signflow.StageError:
			fmt.Printf("✗ %v\n", state.Err)
			return fmt.Errorf("signing failed")
		}
	}
	return nil
}

func cmdRemove(store accounts.Store, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("usage: cpsetup remove <account-id>")
	}
	if err := store.Remove(accountID); err != nil {
		return err
	}
	fmt.Printf("✓ Removed account %s\n", accountID)
	return nil
}
