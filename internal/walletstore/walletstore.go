// Package walletstore implements the on-disk seed-backed wallet store:
// a single wallets.json index plus a per-wallet encrypted keystore file,
// written atomically per spec.md §4.C.
package walletstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aibtc/wallet-core/internal/fileutil"
	"github.com/aibtc/wallet-core/internal/idgen"
	"github.com/aibtc/wallet-core/internal/keyderiv"
	"github.com/aibtc/wallet-core/internal/netparams"
	"github.com/aibtc/wallet-core/internal/vault"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

const (
	indexFileName    = "wallets.json"
	keystoreFileName = "keystore.json"
	indexVersion     = 1
	keystoreVersion  = 1

	dirPermissions  = 0o700
	filePermissions = 0o600
)

var errOldPasswordStillValid = errors.New("walletstore: old password still decrypts after rotation")

// Meta is the public, non-secret record for one wallet, as carried in
// wallets.json and returned by List/Create/Import.
type Meta struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Network        string    `json:"network"`
	StacksAddress  string    `json:"stacks_address"`
	BitcoinAddress string    `json:"bitcoin_address"`
	TaprootAddress string    `json:"taproot_address"`
	SponsorAPIKey  string    `json:"sponsor_api_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastUsedAt     time.Time `json:"last_used_at"`
}

type index struct {
	Version  int    `json:"version"`
	ActiveID string `json:"active_id,omitempty"`
	Wallets  []Meta `json:"wallets"`
}

// keystoreFile is the on-disk shape of wallets/<id>/keystore.json.
type keystoreFile struct {
	Version   int         `json:"version"`
	Meta      Meta        `json:"meta"`
	Encrypted *vault.Blob `json:"encrypted"`
}

// Store is the seed-backed wallet store rooted at a storage directory.
// All mutating operations hold store-wide mutual exclusion, matching
// spec.md §5's single-writer requirement.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a Store rooted at root. root is created on first write.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, indexFileName)
}

func (s *Store) walletDir(id string) string {
	return filepath.Join(s.root, "wallets", id)
}

func (s *Store) keystorePath(id string) string {
	return filepath.Join(s.walletDir(id), keystoreFileName)
}

func (s *Store) readIndex() (*index, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return &index{Version: indexVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("walletstore: reading index: %w", err)
	}

	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, apperr.Wrap(apperr.KindIntegrityError, "wallet index is corrupt", err)
	}
	return &idx, nil
}

func (s *Store) writeIndex(idx *index) error {
	if err := os.MkdirAll(s.root, dirPermissions); err != nil {
		return fmt.Errorf("walletstore: creating storage root: %w", err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("walletstore: marshaling index: %w", err)
	}
	return fileutil.WriteAtomic(s.indexPath(), data, filePermissions)
}

// Create generates a fresh 24-word mnemonic, derives the three addresses
// for network, and persists an encrypted keystore plus index entry. The
// mnemonic is returned exactly once; the caller is responsible for
// showing it to the operator and then discarding it.
func (s *Store) Create(name, password string, network netparams.Network) (*Meta, string, error) {
	mnemonic, err := keyderiv.GenerateMnemonic(keyderiv.WordCount24)
	if err != nil {
		return nil, "", fmt.Errorf("walletstore: generating mnemonic: %w", err)
	}

	meta, err := s.persistNew(name, mnemonic, password, network)
	if err != nil {
		return nil, "", err
	}
	return meta, mnemonic, nil
}

// Import validates an existing mnemonic and persists it exactly as
// Create would, without generating fresh entropy.
func (s *Store) Import(name, mnemonic, password string, network netparams.Network) (*Meta, error) {
	if err := keyderiv.ValidateMnemonic(mnemonic); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "invalid mnemonic", err)
	}
	return s.persistNew(name, mnemonic, password, network)
}

func (s *Store) persistNew(name, mnemonic, password string, network netparams.Network) (*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := keyderiv.MnemonicToSeed(mnemonic, "")
	defer vault.ZeroBytes(seed)

	identity, err := keyderiv.DeriveIdentity(seed, network)
	if err != nil {
		return nil, fmt.Errorf("walletstore: deriving identity: %w", err)
	}

	id, err := idgen.NewUUID()
	if err != nil {
		return nil, fmt.Errorf("walletstore: generating wallet id: %w", err)
	}

	now := time.Now().UTC()
	meta := Meta{
		ID:             id,
		Name:           name,
		Network:        string(network),
		StacksAddress:  identity.Stacks.Address,
		BitcoinAddress: identity.Bitcoin.Address,
		TaprootAddress: identity.Taproot.Address,
		CreatedAt:      now,
		LastUsedAt:     now,
	}

	blob, err := vault.Encrypt([]byte(mnemonic), password, vault.ProfileArgon2ID)
	if err != nil {
		return nil, fmt.Errorf("walletstore: encrypting seed: %w", err)
	}

	if err := os.MkdirAll(s.walletDir(id), dirPermissions); err != nil {
		return nil, fmt.Errorf("walletstore: creating wallet directory: %w", err)
	}

	ks := keystoreFile{Version: keystoreVersion, Meta: meta, Encrypted: blob}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("walletstore: marshaling keystore: %w", err)
	}
	if err := fileutil.WriteAtomic(s.keystorePath(id), data, filePermissions); err != nil {
		return nil, fmt.Errorf("walletstore: writing keystore: %w", err)
	}

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	idx.Wallets = append(idx.Wallets, meta)
	if idx.ActiveID == "" {
		idx.ActiveID = id
	}
	if err := s.writeIndex(idx); err != nil {
		return nil, err
	}

	return &meta, nil
}

// List returns metadata for every wallet, in the order they were created.
func (s *Store) List() ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Wallets, nil
}

// GetActiveID returns the currently active wallet id, or ("", false) if
// none is set.
func (s *Store) GetActiveID() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return "", false, err
	}
	if idx.ActiveID == "" {
		return "", false, nil
	}
	return idx.ActiveID, true, nil
}

// SwitchActive moves the active pointer to id. The caller is responsible
// for locking any existing session before calling this (session.Manager
// does so).
func (s *Store) SwitchActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	if !containsID(idx.Wallets, id) {
		return apperr.Wrap(apperr.KindNotFound, "wallet not found", fmt.Errorf("id %q", id))
	}
	idx.ActiveID = id
	return s.writeIndex(idx)
}

// ExportMnemonic decrypts and returns the seed phrase for id. The result
// is never cached; callers must discard it promptly.
func (s *Store) ExportMnemonic(id, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks, err := s.loadKeystore(id)
	if err != nil {
		return "", err
	}

	plaintext, err := vault.Decrypt(ks.Encrypted, password)
	if err != nil {
		return "", apperr.Wrap(apperr.KindWrongPassword, "wrong password", err)
	}
	mnemonic := string(plaintext)
	vault.ZeroBytes(plaintext)

	if err := s.verifyIntegrity(ks.Meta, mnemonic); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// RotatePassword re-encrypts the seed under newPassword. The sequence is
// strictly atomic: back up the keystore file, write the re-encrypted
// version, re-read and verify it decrypts under the new password (and
// that the old password is now rejected); on any failure the backup is
// restored and the original error (plus any rollback failure) surfaces.
func (s *Store) RotatePassword(id, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks, err := s.loadKeystore(id)
	if err != nil {
		return err
	}

	plaintext, err := vault.Decrypt(ks.Encrypted, oldPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindWrongPassword, "wrong password", err)
	}
	defer vault.ZeroBytes(plaintext)

	original, err := os.ReadFile(s.keystorePath(id))
	if err != nil {
		return fmt.Errorf("walletstore: reading keystore for backup: %w", err)
	}
	backupPath := s.keystorePath(id) + ".bak"
	if err := fileutil.WriteAtomic(backupPath, original, filePermissions); err != nil {
		return fmt.Errorf("walletstore: writing rotation backup: %w", err)
	}

	newBlob, err := vault.Encrypt(plaintext, newPassword, vault.ProfileArgon2ID)
	if err != nil {
		return s.rollback(backupPath, fmt.Errorf("walletstore: encrypting under new password: %w", err))
	}
	ks.Encrypted = newBlob

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return s.rollback(backupPath, fmt.Errorf("walletstore: marshaling rotated keystore: %w", err))
	}
	if err := fileutil.WriteAtomic(s.keystorePath(id), data, filePermissions); err != nil {
		return s.rollback(backupPath, fmt.Errorf("walletstore: writing rotated keystore: %w", err))
	}

	reloaded, err := s.loadKeystore(id)
	if err != nil {
		return s.rollback(backupPath, fmt.Errorf("walletstore: re-reading rotated keystore: %w", err))
	}
	if _, err := vault.Decrypt(reloaded.Encrypted, newPassword); err != nil {
		return s.rollback(backupPath, fmt.Errorf("walletstore: new password did not round-trip: %w", err))
	}
	if _, err := vault.Decrypt(reloaded.Encrypted, oldPassword); err == nil {
		return s.rollback(backupPath, errOldPasswordStillValid)
	}

	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("walletstore: removing rotation backup: %w", err)
	}
	return nil
}

func (s *Store) rollback(backupPath string, cause error) error {
	data, readErr := os.ReadFile(backupPath)
	if readErr != nil {
		return fmt.Errorf("%w (rollback also failed reading backup: %v)", cause, readErr)
	}

	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return fmt.Errorf("%w (rollback also failed parsing backup: %v)", cause, err)
	}

	if writeErr := fileutil.WriteAtomic(s.keystorePath(ks.Meta.ID), data, filePermissions); writeErr != nil {
		return fmt.Errorf("%w (rollback also failed restoring keystore: %v)", cause, writeErr)
	}
	_ = os.Remove(backupPath)
	return cause
}

// Delete verifies password, removes the keystore and its index entry,
// and reassigns the active pointer if id was active.
func (s *Store) Delete(id, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks, err := s.loadKeystore(id)
	if err != nil {
		return err
	}
	if _, err := vault.Decrypt(ks.Encrypted, password); err != nil {
		return apperr.Wrap(apperr.KindWrongPassword, "wrong password", err)
	}

	idx, err := s.readIndex()
	if err != nil {
		return err
	}

	remaining := make([]Meta, 0, len(idx.Wallets))
	for _, m := range idx.Wallets {
		if m.ID != id {
			remaining = append(remaining, m)
		}
	}
	idx.Wallets = remaining
	if idx.ActiveID == id {
		if len(remaining) > 0 {
			idx.ActiveID = remaining[0].ID
		} else {
			idx.ActiveID = ""
		}
	}

	if err := os.RemoveAll(s.walletDir(id)); err != nil {
		return fmt.Errorf("walletstore: removing wallet directory: %w", err)
	}
	return s.writeIndex(idx)
}

func (s *Store) loadKeystore(id string) (*keystoreFile, error) {
	data, err := os.ReadFile(s.keystorePath(id))
	if os.IsNotExist(err) {
		return nil, apperr.Wrap(apperr.KindNotFound, "wallet not found", fmt.Errorf("id %q", id))
	}
	if err != nil {
		return nil, fmt.Errorf("walletstore: reading keystore: %w", err)
	}

	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, apperr.Wrap(apperr.KindIntegrityError, "keystore file is corrupt", err)
	}
	return &ks, nil
}

// verifyIntegrity re-derives addresses from mnemonic and confirms they
// match the stored public-verification metadata, per spec.md §3's
// invariant that metadata and re-derived material must always agree.
func (s *Store) verifyIntegrity(meta Meta, mnemonic string) error {
	network, err := netparams.Parse(meta.Network)
	if err != nil {
		return apperr.Wrap(apperr.KindIntegrityError, "keystore has an invalid network tag", err)
	}

	seed := keyderiv.MnemonicToSeed(mnemonic, "")
	defer vault.ZeroBytes(seed)

	identity, err := keyderiv.DeriveIdentity(seed, network)
	if err != nil {
		return fmt.Errorf("walletstore: re-deriving identity: %w", err)
	}

	if identity.Stacks.Address != meta.StacksAddress ||
		identity.Bitcoin.Address != meta.BitcoinAddress ||
		identity.Taproot.Address != meta.TaprootAddress {
		return apperr.New(apperr.KindIntegrityError, "re-derived addresses do not match stored metadata")
	}
	return nil
}

func containsID(wallets []Meta, id string) bool {
	for _, m := range wallets {
		if m.ID == id {
			return true
		}
	}
	return false
}
