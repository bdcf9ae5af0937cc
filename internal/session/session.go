// Package session implements the in-memory unlocked-account manager:
// at most one seed session and one signing-key session live at a time,
// each with a cancellable auto-lock timer, per spec.md §4.E. Unlike the
// teacher's file+OS-keyring session (built to survive across separate
// CLI process invocations), this is a plain owned struct with no
// persistence — wallet-core is a library, not a long-lived daemon.
package session

import (
	"sync"
	"time"

	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/vault"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

// SeedAccount is the live, decrypted material for an unlocked seed-backed
// wallet.
type SeedAccount struct {
	WalletID  string
	Identity  *keyderiv.Identity
	UnlockAt  time.Time
	ExpiresAt time.Time // zero means no expiry
}

// KeyAccount is the live, decrypted material for an unlocked signing key.
type KeyAccount struct {
	KeyID      string
	PrivateKey []byte
	Principal  string
	UnlockAt   time.Time
	ExpiresAt  time.Time
}

// Manager owns at most one live SeedAccount and one live KeyAccount.
type Manager struct {
	mu sync.Mutex

	seed    *SeedAccount
	seedKey *keyderiv.Identity // retained only to zeroize on lock

	key *KeyAccount

	autoLockMinutes int
	seedTimer       *time.Timer
	keyTimer        *time.Timer
}

// NewManager returns an empty session manager with no auto-lock timeout.
func NewManager() *Manager {
	return &Manager{}
}

// UnlockSeed installs identity as the active seed session, deriving an
// expiry from the configured auto-lock timeout if one is set.
func (m *Manager) UnlockSeed(walletID string, identity *keyderiv.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.zeroizeSeedLocked()
	if m.seedTimer != nil {
		m.seedTimer.Stop()
	}

	now := time.Now()
	account := &SeedAccount{WalletID: walletID, Identity: identity, UnlockAt: now}
	if m.autoLockMinutes > 0 {
		d := time.Duration(m.autoLockMinutes) * time.Minute
		account.ExpiresAt = now.Add(d)
		m.seedTimer = time.AfterFunc(d, func() { m.LockSeed() })
	}
	m.seed = account
	m.seedKey = identity
}

// UnlockKey installs a signing-key session analogous to UnlockSeed.
func (m *Manager) UnlockKey(keyID string, privateKey []byte, principal string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.zeroizeKeyLocked()
	if m.keyTimer != nil {
		m.keyTimer.Stop()
	}

	now := time.Now()
	account := &KeyAccount{KeyID: keyID, PrivateKey: privateKey, Principal: principal, UnlockAt: now}
	if m.autoLockMinutes > 0 {
		d := time.Duration(m.autoLockMinutes) * time.Minute
		account.ExpiresAt = now.Add(d)
		m.keyTimer = time.AfterFunc(d, func() { m.LockKey() })
	}
	m.key = account
}

// GetActiveSeed returns the live seed session, locking and returning
// (nil, false) if its expiry has passed.
func (m *Manager) GetActiveSeed() (*SeedAccount, bool) {
	m.mu.Lock()
	if m.seed != nil && !m.seed.ExpiresAt.IsZero() && time.Now().After(m.seed.ExpiresAt) {
		m.zeroizeSeedLocked()
		m.mu.Unlock()
		return nil, false
	}
	seed := m.seed
	m.mu.Unlock()

	if seed == nil {
		return nil, false
	}
	return seed, true
}

// GetActiveKey returns the live signing-key session, locking and
// returning (nil, false) if its expiry has passed.
func (m *Manager) GetActiveKey() (*KeyAccount, bool) {
	m.mu.Lock()
	if m.key != nil && !m.key.ExpiresAt.IsZero() && time.Now().After(m.key.ExpiresAt) {
		m.zeroizeKeyLocked()
		m.mu.Unlock()
		return nil, false
	}
	key := m.key
	m.mu.Unlock()

	if key == nil {
		return nil, false
	}
	return key, true
}

// LockSeed cancels the auto-lock timer and zeroizes the seed session's
// private-key material.
func (m *Manager) LockSeed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zeroizeSeedLocked()
}

// LockKey cancels the auto-lock timer and zeroizes the signing-key
// session's private-key material.
func (m *Manager) LockKey() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zeroizeKeyLocked()
}

// Shutdown locks both sessions, cancelling any running timers. Safe to
// call multiple times.
func (m *Manager) Shutdown() {
	m.LockSeed()
	m.LockKey()
}

// SetAutoLockTimeout sets the auto-lock timeout in minutes; 0 disables
// auto-lock. Any running timers are reset against the new value.
func (m *Manager) SetAutoLockTimeout(minutes int) error {
	if minutes < 0 {
		return apperr.New(apperr.KindInvalidInput, "auto-lock timeout must be >= 0")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.autoLockMinutes = minutes

	if m.seedTimer != nil {
		m.seedTimer.Stop()
		m.seedTimer = nil
	}
	if m.seed != nil {
		if minutes > 0 {
			d := time.Duration(minutes) * time.Minute
			m.seed.ExpiresAt = time.Now().Add(d)
			m.seedTimer = time.AfterFunc(d, func() { m.LockSeed() })
		} else {
			m.seed.ExpiresAt = time.Time{}
		}
	}

	if m.keyTimer != nil {
		m.keyTimer.Stop()
		m.keyTimer = nil
	}
	if m.key != nil {
		if minutes > 0 {
			d := time.Duration(minutes) * time.Minute
			m.key.ExpiresAt = time.Now().Add(d)
			m.keyTimer = time.AfterFunc(d, func() { m.LockKey() })
		} else {
			m.key.ExpiresAt = time.Time{}
		}
	}

	return nil
}

// zeroizeSeedLocked must be called with m.mu held.
func (m *Manager) zeroizeSeedLocked() {
	if m.seedTimer != nil {
		m.seedTimer.Stop()
		m.seedTimer = nil
	}
	if m.seedKey != nil {
		vault.ZeroBytes(m.seedKey.Stacks.PrivateKey)
		vault.ZeroBytes(m.seedKey.Bitcoin.PrivateKey)
		vault.ZeroBytes(m.seedKey.Taproot.PrivateKey)
		m.seedKey = nil
	}
	m.seed = nil
}

// zeroizeKeyLocked must be called with m.mu held.
func (m *Manager) zeroizeKeyLocked() {
	if m.keyTimer != nil {
		m.keyTimer.Stop()
		m.keyTimer = nil
	}
	if m.key != nil {
		vault.ZeroBytes(m.key.PrivateKey)
		m.key = nil
	}
}
