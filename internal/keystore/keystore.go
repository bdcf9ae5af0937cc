// Package keystore implements the bare signing-key store: 32-byte
// secp256k1 private keys bound to a smart-wallet principal, persisted
// the same way walletstore persists seeds but without mnemonic/BIP-32
// material, per spec.md §4.D.
package keystore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/aibtc/wallet-core/internal/fileutil"
	"github.com/aibtc/wallet-core/internal/idgen"
	"github.com/aibtc/wallet-core/internal/vault"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

// PendingPrincipal is the sentinel smart-wallet principal a freshly
// generated signing key starts with, before the smart wallet it signs
// for has been deployed on-chain.
const PendingPrincipal = "pending"

const (
	indexFileName    = "keys.json"
	keystoreFileName = "keystore.json"
	indexVersion     = 1
	keystoreVersion  = 1

	dirPermissions  = 0o700
	filePermissions = 0o600
)

// Meta is the public record for one signing key.
type Meta struct {
	ID        string    `json:"id"`
	PublicKey []byte    `json:"public_key"` // 33-byte compressed
	Principal string    `json:"principal"`  // PendingPrincipal until bound
	CreatedAt time.Time `json:"created_at"`
}

type index struct {
	Version int    `json:"version"`
	Keys    []Meta `json:"keys"`
}

type keystoreFile struct {
	Version   int         `json:"version"`
	Meta      Meta        `json:"meta"`
	Encrypted *vault.Blob `json:"encrypted"`
}

// Store is the signing-key store rooted at a storage directory.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) indexPath() string { return filepath.Join(s.root, indexFileName) }

func (s *Store) keyDir(id string) string { return filepath.Join(s.root, "keys", id) }

func (s *Store) keystorePath(id string) string {
	return filepath.Join(s.keyDir(id), keystoreFileName)
}

// Generate creates a fresh secp256k1 signing key bound to PendingPrincipal.
func (s *Store) Generate(password string) (*Meta, error) {
	raw, err := vault.RandomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("keystore: generating private key: %w", err)
	}
	return s.persist(raw, password)
}

// Import persists a caller-supplied 32-byte private key.
func (s *Store) Import(privateKey []byte, password string) (*Meta, error) {
	if len(privateKey) != 32 {
		return nil, apperr.New(apperr.KindInvalidInput, "private key must be 32 bytes")
	}
	return s.persist(privateKey, password)
}

func (s *Store) persist(privateKey []byte, password string) (*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	priv := secp256k1.PrivKeyFromBytes(privateKey)
	pub := priv.PubKey().SerializeCompressed()

	id, err := idgen.NewUUID()
	if err != nil {
		return nil, fmt.Errorf("keystore: generating key id: %w", err)
	}

	meta := Meta{
		ID:        id,
		PublicKey: pub,
		Principal: PendingPrincipal,
		CreatedAt: time.Now().UTC(),
	}

	blob, err := vault.Encrypt(privateKey, password, vault.ProfileArgon2ID)
	if err != nil {
		return nil, fmt.Errorf("keystore: encrypting private key: %w", err)
	}

	if err := os.MkdirAll(s.keyDir(id), dirPermissions); err != nil {
		return nil, fmt.Errorf("keystore: creating key directory: %w", err)
	}

	ks := keystoreFile{Version: keystoreVersion, Meta: meta, Encrypted: blob}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("keystore: marshaling keystore: %w", err)
	}
	if err := fileutil.WriteAtomic(s.keystorePath(id), data, filePermissions); err != nil {
		return nil, fmt.Errorf("keystore: writing keystore: %w", err)
	}

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	idx.Keys = append(idx.Keys, meta)
	if err := s.writeIndex(idx); err != nil {
		return nil, err
	}

	return &meta, nil
}

// List returns metadata for every signing key.
func (s *Store) List() ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Keys, nil
}

// Unlock decrypts and returns the 32-byte private key for id.
func (s *Store) Unlock(id, password string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks, err := s.loadKeystore(id)
	if err != nil {
		return nil, err
	}

	priv, err := vault.Decrypt(ks.Encrypted, password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindWrongPassword, "wrong password", err)
	}

	derivedPub := secp256k1.PrivKeyFromBytes(priv).PubKey().SerializeCompressed()
	if !bytes.Equal(derivedPub, ks.Meta.PublicKey) {
		vault.ZeroBytes(priv)
		return nil, apperr.New(apperr.KindIntegrityError, "derived public key does not match stored metadata")
	}

	return priv, nil
}

// UpdatePrincipal binds id's smart-wallet principal exactly once: the
// sentinel PendingPrincipal may transition to a real principal, but a
// key that already has a real principal cannot be rebound.
func (s *Store) UpdatePrincipal(id, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks, err := s.loadKeystore(id)
	if err != nil {
		return err
	}
	if ks.Meta.Principal != PendingPrincipal {
		return apperr.New(apperr.KindInvalidInput, "signing key is already bound to a smart-wallet principal").
			WithDetails("current_principal", ks.Meta.Principal)
	}

	ks.Meta.Principal = principal
	if err := s.writeKeystore(ks); err != nil {
		return err
	}
	return s.updateIndexMeta(ks.Meta)
}

// Delete verifies password and removes the key. Callers must lock any
// active session for this key before calling Delete.
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
	remaining := make([]Meta, 0, len(idx.Keys))
	for _, m := range idx.Keys {
		if m.ID != id {
			remaining = append(remaining, m)
		}
	}
	idx.Keys = remaining

	if err := os.RemoveAll(s.keyDir(id)); err != nil {
		return fmt.Errorf("keystore: removing key directory: %w", err)
	}
	return s.writeIndex(idx)
}

func (s *Store) readIndex() (*index, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return &index{Version: indexVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: reading index: %w", err)
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, apperr.Wrap(apperr.KindIntegrityError, "key index is corrupt", err)
	}
	return &idx, nil
}

func (s *Store) writeIndex(idx *index) error {
	if err := os.MkdirAll(s.root, dirPermissions); err != nil {
		return fmt.Errorf("keystore: creating storage root: %w", err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("keystore: marshaling index: %w", err)
	}
	return fileutil.WriteAtomic(s.indexPath(), data, filePermissions)
}

func (s *Store) updateIndexMeta(meta Meta) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	for i, m := range idx.Keys {
		if m.ID == meta.ID {
			idx.Keys[i] = meta
		}
	}
	return s.writeIndex(idx)
}

func (s *Store) loadKeystore(id string) (*keystoreFile, error) {
	data, err := os.ReadFile(s.keystorePath(id))
	if os.IsNotExist(err) {
		return nil, apperr.Wrap(apperr.KindNotFound, "signing key not found", fmt.Errorf("id %q", id))
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: reading keystore: %w", err)
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, apperr.Wrap(apperr.KindIntegrityError, "keystore file is corrupt", err)
	}
	return &ks, nil
}

func (s *Store) writeKeystore(ks *keystoreFile) error {
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return fmt.Errorf("keystore: marshaling keystore: %w", err)
	}
	return fileutil.WriteAtomic(s.keystorePath(ks.Meta.ID), data, filePermissions)
}

