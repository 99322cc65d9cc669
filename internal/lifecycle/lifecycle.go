// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle owns the in-memory configuration and credential snapshot and the single
// path through which they are loaded, reloaded and refreshed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"go.voipnowmcp.dev/internal/config"
	"go.voipnowmcp.dev/internal/constable"
	"go.voipnowmcp.dev/internal/credential"
	"go.voipnowmcp.dev/internal/fingerprint"
	"go.voipnowmcp.dev/internal/plog"
	"go.voipnowmcp.dev/internal/tokenissuer"
)

const (
	// DefaultRefreshBuffer is how long before expiry a credential is replaced.
	DefaultRefreshBuffer = 300 * time.Second

	ErrConfig     = constable.Error("configuration is invalid")
	ErrIdentity   = constable.Error("could not check the platform identity")
	ErrCredential = constable.Error("credential file is unusable")
	ErrNotLoaded  = constable.Error("configuration has not been loaded")
)

// Issuer mints a new credential and persists it with the given writer.
type Issuer interface {
	Issue(ctx context.Context, cfg *config.Config, w tokenissuer.RecordWriter) (credential.Record, error)
}

// State is an immutable snapshot.  It is replaced wholesale, never mutated.
type State struct {
	Config     *config.Config
	Credential credential.Record
	LoadedAt   time.Time
}

type Manager struct {
	configPath string
	configOpts config.Options
	issuer     Issuer
	clock      clock.PassiveClock
	logger     plog.Logger
	buffer     time.Duration
	storeOpts  []credential.StoreOption

	// mu serializes every path that may issue a credential or replace the state.
	mu    sync.Mutex
	state atomic.Pointer[State]
}

type Option func(*Manager)

func WithClock(c clock.PassiveClock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithLogger(l plog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithConfigOptions(opts config.Options) Option {
	return func(m *Manager) { m.configOpts = opts }
}

func WithRefreshBuffer(d time.Duration) Option {
	return func(m *Manager) { m.buffer = d }
}

func WithStoreOptions(opts ...credential.StoreOption) Option {
	return func(m *Manager) { m.storeOpts = opts }
}

func NewManager(configPath string, issuer Issuer, opts ...Option) (*Manager, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve configuration path: %w", err)
	}

	m := &Manager{
		configPath: abs,
		issuer:     issuer,
		clock:      clock.RealClock{},
		logger:     plog.New(),
		buffer:     DefaultRefreshBuffer,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Current returns the last committed snapshot, or nil before Load succeeds.
func (m *Manager) Current() *State {
	return m.state.Load()
}

// ConfigPath is the absolute path of the configuration file.
func (m *Manager) ConfigPath() string {
	return m.configPath
}

// WatchedPaths returns the files whose modification should trigger a reload.
func (m *Manager) WatchedPaths() []string {
	paths := []string{m.configPath}
	if s := m.Current(); s != nil {
		paths = append(paths, s.Config.CredentialFile)
	}
	return paths
}

// Load performs the startup load.  Any error is meant to be fatal.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.derive(ctx, false)
	if err != nil {
		return err
	}

	m.state.Store(next)
	m.logger.Info("configuration loaded",
		"path", m.configPath,
		"host", next.Config.VoipnowHost,
		"credentialExpiresAt", next.Credential.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

// Reload re-reads the configuration and re-derives the credential.  Only a fully successful reload
// is committed; on failure the previous snapshot and log level stay in effect and the error is
// returned for the caller to log or ignore.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.state.Load()
	previousLevel := plog.GlobalLevel()

	next, err := m.derive(ctx, true)
	if err != nil {
		if levelErr := plog.SetGlobalLevel(previousLevel); levelErr != nil {
			err = errors.Join(err, levelErr)
		}
		m.restoreDisk(previous)
		m.logger.WarningErr("configuration reload failed, keeping the previous configuration", err, "path", m.configPath)
		return err
	}

	m.state.Store(next)
	m.logger.Info("configuration reloaded",
		"path", m.configPath,
		"host", next.Config.VoipnowHost,
		"credentialExpiresAt", next.Credential.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

// EnsureFreshCredential replaces the credential of the current snapshot when the stored one is
// missing, unreadable, or within the refresh buffer of its expiry.
func (m *Manager) EnsureFreshCredential(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.state.Load()
	if current == nil {
		return nil, ErrNotLoaded
	}

	record, err := m.regenerateUnreadable(ctx, current.Config)
	if err != nil {
		return current, err
	}
	if record == current.Credential {
		return current, nil
	}

	next := &State{Config: current.Config, Credential: record, LoadedAt: current.LoadedAt}
	m.state.Store(next)
	return next, nil
}

func (m *Manager) derive(ctx context.Context, hotReload bool) (*State, error) {
	cfg, err := config.FromPath(m.configPath, m.configOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := plog.SetGlobalLevel(cfg.PlogLevel()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	changed, err := fingerprint.NewDetector(cfg).HasIdentityChanged(cfg.Identity())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentity, err)
	}
	if changed {
		m.logger.Info("platform identity changed, stored credential invalidated", "host", cfg.VoipnowHost)
	}

	ensure := m.ensureCredential
	if hotReload {
		ensure = m.regenerateUnreadable
	}
	record, err := ensure(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &State{Config: cfg, Credential: record, LoadedAt: m.clock.Now()}, nil
}

// regenerateUnreadable is ensureCredential with one corrective step: a credential file that cannot be
// read at all is removed and issued again.  Startup does not use it so that a broken file is reported.
func (m *Manager) regenerateUnreadable(ctx context.Context, cfg *config.Config) (credential.Record, error) {
	record, err := m.ensureCredential(ctx, cfg)
	if err == nil || !errors.Is(err, ErrCredential) {
		return record, err
	}

	m.logger.WarningErr("credential file unusable, regenerating once", err, "path", cfg.CredentialFile)
	if removeErr := m.newStore(cfg).Remove(); removeErr != nil {
		return credential.Record{}, fmt.Errorf("%w: %w", ErrCredential, removeErr)
	}
	return m.ensureCredential(ctx, cfg)
}

func (m *Manager) ensureCredential(ctx context.Context, cfg *config.Config) (credential.Record, error) {
	store := m.newStore(cfg)

	record, err := store.Read()
	var reason string
	switch {
	case err == nil && !record.ExpiresWithin(m.clock.Now(), m.buffer):
		return record, nil
	case err == nil:
		reason = "expiring soon"
	case errors.Is(err, credential.ErrMissing):
		reason = "missing"
	case errors.Is(err, credential.ErrExpired):
		reason = "expired"
	case errors.Is(err, credential.ErrCorrupt):
		reason = "corrupt"
		m.logger.WarningErr("stored credential is corrupt", err, "path", cfg.CredentialFile)
	default:
		return credential.Record{}, fmt.Errorf("%w: %w", ErrCredential, err)
	}

	m.logger.Info("issuing platform credential", "reason", reason, "host", cfg.VoipnowHost)
	issued, err := m.issuer.Issue(ctx, cfg, store)
	if err != nil {
		return credential.Record{}, err
	}
	return issued, nil
}

// restoreDisk puts the fingerprint and credential of previous back in place after a failed reload
// invalidated them for an identity that never got committed.
func (m *Manager) restoreDisk(previous *State) {
	if previous == nil {
		return
	}

	if _, err := fingerprint.NewDetector(previous.Config).HasIdentityChanged(previous.Config.Identity()); err != nil {
		m.logger.WarningErr("could not restore identity fingerprint", err)
		return
	}

	store := m.newStore(previous.Config)
	if _, err := store.Read(); !errors.Is(err, credential.ErrMissing) {
		return
	}
	if !m.clock.Now().Before(previous.Credential.ExpiresAt) {
		return
	}
	if err := store.Write(previous.Credential); err != nil {
		m.logger.WarningErr("could not restore previous credential", err)
	}
}

func (m *Manager) newStore(cfg *config.Config) *credential.Store {
	opts := append([]credential.StoreOption{credential.WithClock(m.clock)}, m.storeOpts...)
	return credential.NewStore(cfg.CredentialFile, opts...)
}
