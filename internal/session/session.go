// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

// Package session manages logical connections to signer devices.
//
// A Manager holds at most one open session per device id; connecting
// again while a session is open returns the existing session instead
// of dialing a duplicate link.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coldpath-wallet/coldpath/internal/device"
	"github.com/coldpath-wallet/coldpath/internal/link"
	"github.com/coldpath-wallet/coldpath/internal/util"
)

// Session is an open logical connection to one device.
type Session struct {
	dev       device.Discovered
	transport link.Transport

	mu     sync.Mutex
	closed bool
	onEnd  func()
}

// Device returns the device this session is connected to.
func (s *Session) Device() device.Discovered {
	return s.dev
}

// Transport exposes the underlying link for signer backends.
func (s *Session) Transport() link.Transport {
	return s.transport
}

// Status queries the device's current handshake status.
func (s *Session) Status(ctx context.Context) (link.Status, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return link.Status{}, link.ErrLinkDropped
	}
	s.mu.Unlock()

	status, err := s.transport.Status(ctx)
	if err != nil {
		return link.Status{}, fmt.Errorf("status query failed: %w", err)
	}
	return status, nil
}

// AwaitReady polls the device status until it reports ready, the
// context is cancelled, or the link fails. The poll interval bounds
// how quickly a user-opened device app is noticed.
func (s *Session) AwaitReady(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := s.Status(ctx)
		if err != nil {
			return err
		}
		if status.Ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close tears down the session and its link. Closing twice is safe.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.onEnd != nil {
		s.onEnd()
	}
	return s.transport.Close()
}

// Manager opens and caches sessions, one per device id.
type Manager struct {
	dial link.Dialer

	mu   sync.Mutex
	open map[string]*Session
}

// NewManager creates a session manager around the given dialer.
func NewManager(dial link.Dialer) *Manager {
	return &Manager{
		dial: dial,
		open: make(map[string]*Session),
	}
}

// Connect opens a session to the device, or returns the already-open
// session for the same device id.
func (m *Manager) Connect(ctx context.Context, dev device.Discovered) (*Session, error) {
	m.mu.Lock()
	if existing, ok := m.open[dev.ID]; ok {
		m.mu.Unlock()
		util.Debug("session manager: reusing open session", "device", dev.ID)
		return existing, nil
	}
	m.mu.Unlock()

	transport, err := m.dial(ctx, dev.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", link.ErrConnectionFailed, err)
	}

	sess := &Session{dev: dev, transport: transport}
	sess.onEnd = func() { m.forget(dev.ID) }

	m.mu.Lock()
	// A concurrent Connect may have raced us; prefer the first one in.
	if existing, ok := m.open[dev.ID]; ok {
		m.mu.Unlock()
		_ = transport.Close()
		return existing, nil
	}
	m.open[dev.ID] = sess
	m.mu.Unlock()

	util.Debug("session manager: session opened", "device", dev.ID)
	return sess, nil
}

// Get returns the open session for a device id, if any.
func (m *Manager) Get(deviceID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.open[deviceID]
	return sess, ok
}

// CloseAll closes every open session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.open))
	for _, sess := range m.open {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.Close()
	}
}

func (m *Manager) forget(deviceID string) {
	m.mu.Lock()
	delete(m.open, deviceID)
	m.mu.Unlock()
}
