// Package session owns the current-user identity and profile, bridging
// identity-provider events into application state. Every identity transition
// tears down all dependent subscriptions before any new one is opened, so a
// second user on the same device can never observe the first user's data.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/bus"
	"github.com/docketapp/docket/internal/docstore"
	"github.com/docketapp/docket/internal/identity"
	"github.com/docketapp/docket/internal/localstore"
	"github.com/docketapp/docket/internal/profiles"
)

// ProfileStatus distinguishes "still loading" from "confirmed missing" from
// "present". A missing profile is a stable, user-visible state that gates the
// application until onboarding completes.
type ProfileStatus int

const (
	ProfilePending ProfileStatus = iota
	ProfileMissing
	ProfilePresent
)

// Dependent is a synchronization layer whose subscriptions are scoped to one
// identity. Stop must release every live subscription exactly once.
type Dependent interface {
	Start(ctx context.Context, ident identity.Identity) error
	Stop()
}

// Manager is the session manager.
type Manager struct {
	auth        identity.Provider
	store       docstore.Store
	local       *localstore.DB
	bus         *bus.Bus
	logger      *zap.Logger
	machine     *machine
	marketplace bool

	mu            sync.RWMutex
	ident         *identity.Identity
	profile       *profiles.Profile
	profileStatus ProfileStatus
	dependents    []Dependent
	depsRunning   bool
	depCtx        context.Context
	depCancel     context.CancelFunc
}

// NewManager creates a session manager starting signed out. With marketplace
// disabled no profile is required and onboarding never gates the app.
func NewManager(auth identity.Provider, store docstore.Store, local *localstore.DB, b *bus.Bus, logger *zap.Logger, marketplace bool) *Manager {
	return &Manager{
		auth:        auth,
		store:       store,
		local:       local,
		bus:         b,
		logger:      logger,
		machine:     newMachine(b),
		marketplace: marketplace,
	}
}

// AddDependent registers a layer to start/stop with the identity. Must be
// called before Start.
func (m *Manager) AddDependent(d Dependent) {
	m.mu.Lock()
	m.dependents = append(m.dependents, d)
	m.mu.Unlock()
}

// State returns the current session state.
func (m *Manager) State() State { return m.machine.state() }

// Identity returns the present identity, nil when signed out.
func (m *Manager) Identity() *identity.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ident
}

// Profile returns the profile status and, when present, the profile.
func (m *Manager) Profile() (ProfileStatus, *profiles.Profile) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profileStatus, m.profile
}

// Start attempts silent re-authentication from the cached device credential
// and begins watching provider-initiated identity changes. A missing,
// expired or forged cached credential leaves the session signed out.
func (m *Manager) Start(ctx context.Context) {
	go m.watch(ctx)

	token, err := m.local.Credential()
	if err != nil {
		m.logger.Warn("reading cached credential", zap.Error(err))
		return
	}
	if token == "" {
		return
	}

	if err := m.machine.transition(Authenticating); err != nil {
		return
	}
	ident, fresh, err := m.auth.SignInWithToken(ctx, token)
	if err != nil {
		m.logger.Info("silent re-auth failed, credential dropped", zap.Error(err))
		_ = m.local.ClearCredential()
		_ = m.machine.transition(SignedOut)
		return
	}
	m.completeSignIn(ctx, ident, fresh)
}

// SignInAnonymously establishes a fresh anonymous identity.
func (m *Manager) SignInAnonymously(ctx context.Context) error {
	return m.signIn(ctx, func() (identity.Identity, string, error) {
		return m.auth.SignInAnonymously(ctx)
	})
}

// SignIn authenticates with email and password.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	return m.signIn(ctx, func() (identity.Identity, string, error) {
		return m.auth.SignIn(ctx, email, password)
	})
}

// Register creates an account and signs in.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	return m.signIn(ctx, func() (identity.Identity, string, error) {
		return m.auth.Register(ctx, email, password)
	})
}

// SignInWithToken redeems a device-link token.
func (m *Manager) SignInWithToken(ctx context.Context, token string) error {
	return m.signIn(ctx, func() (identity.Identity, string, error) {
		return m.auth.SignInWithToken(ctx, token)
	})
}

func (m *Manager) signIn(ctx context.Context, do func() (identity.Identity, string, error)) error {
	if err := m.machine.transition(Authenticating); err != nil {
		return err
	}
	ident, token, err := do()
	if err != nil {
		_ = m.machine.transition(SignedOut)
		return err
	}
	m.completeSignIn(ctx, ident, token)
	return nil
}

// SignOut releases every dependent subscription, drops the identity and
// clears the cached credential.
func (m *Manager) SignOut() {
	m.teardown()
	m.auth.SignOut()
	if err := m.local.ClearCredential(); err != nil {
		m.logger.Warn("clearing cached credential", zap.Error(err))
	}
	if err := m.machine.transition(SignedOut); err != nil {
		m.logger.Warn("sign-out transition", zap.Error(err))
	}
	m.publishIdentity(nil)
}

// Shutdown releases every dependent subscription but keeps the cached
// credential, so the next process start re-authenticates silently.
func (m *Manager) Shutdown() {
	m.teardown()
}

// SaveProfile validates and idempotently upserts the current user's profile,
// then unlocks the application if onboarding was pending.
func (m *Manager) SaveProfile(ctx context.Context, p profiles.Profile) error {
	ident := m.Identity()
	if ident == nil {
		return errors.New("session: not signed in")
	}
	p.UID = ident.UID
	if err := profiles.Upsert(ctx, m.store, p); err != nil {
		return err
	}

	m.mu.Lock()
	m.profile = &p
	m.profileStatus = ProfilePresent
	m.mu.Unlock()

	if m.machine.state() == NeedsProfile {
		if err := m.machine.transition(Ready); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) completeSignIn(ctx context.Context, ident identity.Identity, token string) {
	if token != "" {
		if err := m.local.SetCredential(token); err != nil {
			m.logger.Warn("caching credential", zap.Error(err))
		}
	}

	// Release before re-acquire: no subscription of the previous identity
	// may outlive the transition.
	m.teardown()

	m.mu.Lock()
	m.ident = &ident
	m.profile = nil
	m.profileStatus = ProfilePending
	m.depCtx, m.depCancel = context.WithCancel(ctx)
	m.depsRunning = true
	deps := append([]Dependent(nil), m.dependents...)
	depCtx := m.depCtx
	m.mu.Unlock()

	for _, d := range deps {
		if err := d.Start(depCtx, ident); err != nil {
			m.logger.Error("starting dependent layer", zap.Error(err))
		}
	}
	m.publishIdentity(&ident)

	next := Ready
	if m.marketplace {
		status, profile := m.resolveProfile(ctx, ident.UID)
		m.mu.Lock()
		m.profileStatus = status
		m.profile = profile
		m.mu.Unlock()
		if status == ProfileMissing {
			next = NeedsProfile
		}
	}
	if err := m.machine.transition(next); err != nil {
		m.logger.Warn("sign-in transition", zap.Error(err))
	}
}

func (m *Manager) resolveProfile(ctx context.Context, uid string) (ProfileStatus, *profiles.Profile) {
	p, err := profiles.Fetch(ctx, m.store, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return ProfileMissing, nil
	}
	if err != nil {
		// Transient read failure: keep "loading" rather than claiming the
		// profile is missing; the onboarding gate only opens on a confirmed
		// miss.
		m.logger.Warn("profile lookup failed", zap.Error(err))
		return ProfilePending, nil
	}
	return ProfilePresent, &p
}

func (m *Manager) teardown() {
	m.mu.Lock()
	running := m.depsRunning
	deps := append([]Dependent(nil), m.dependents...)
	cancel := m.depCancel
	m.ident = nil
	m.profile = nil
	m.profileStatus = ProfilePending
	m.depsRunning = false
	m.depCancel = nil
	m.mu.Unlock()

	if running {
		for _, d := range deps {
			d.Stop()
		}
	}
	if cancel != nil {
		cancel()
	}
}

// watch reacts to provider-initiated identity changes (e.g. a forced
// sign-out); transitions driven by this manager's own methods arrive here
// already applied and are ignored.
func (m *Manager) watch(ctx context.Context) {
	for {
		select {
		case ch := <-m.auth.Changes():
			m.mu.RLock()
			current := m.ident
			m.mu.RUnlock()

			switch {
			case ch.Identity == nil && current != nil:
				m.logger.Info("provider signed the session out")
				m.teardown()
				_ = m.local.ClearCredential()
				_ = m.machine.transition(SignedOut)
				m.publishIdentity(nil)
			case ch.Identity != nil && current != nil && ch.Identity.UID != current.UID:
				m.logger.Info("provider switched identities", zap.String("uid", ch.Identity.UID))
				m.teardown()
				m.completeSignIn(ctx, *ch.Identity, "")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) publishIdentity(ident *identity.Identity) {
	m.bus.Publish(bus.Event{
		Kind:      bus.KindSessionIdentity,
		Timestamp: time.Now(),
		Payload:   ident,
	})
}
