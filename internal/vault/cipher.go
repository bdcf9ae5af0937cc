package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// Profile selects the key-derivation-function/AEAD pairing used by a blob.
type Profile string

const (
	// ProfileArgon2ID is the default profile: argon2id + XChaCha20-Poly1305.
	ProfileArgon2ID Profile = "argon2id-xchacha20poly1305"

	// ProfilePBKDF2 is the minimum-acceptable fallback profile:
	// pbkdf2-sha512 + AES-256-GCM.
	ProfilePBKDF2 Profile = "pbkdf2-sha512-aes256gcm"
)

const (
	saltLen = 16

	argon2Time    = 3
	argon2Memory  = 64 * 1024 // KiB, i.e. 64 MiB
	argon2Threads = 4
	argon2KeyLen  = 32

	pbkdf2Iterations = 210000
	pbkdf2KeyLen     = 32
)

// ErrWrongPassword is returned when the AEAD tag fails to verify. No
// partial plaintext is ever produced on this path.
var ErrWrongPassword = errors.New("vault: wrong password or corrupt ciphertext")

// Blob is the self-describing, JSON-serializable encrypted payload shape
// stored on disk by every keystore in this module.
type Blob struct {
	Version    int            `json:"version"`
	Alg        string         `json:"alg"`
	KDF        string         `json:"kdf"`
	KDFParams  map[string]int `json:"kdf_params"`
	Salt       []byte         `json:"salt"`
	Nonce      []byte         `json:"nonce"`
	Ciphertext []byte         `json:"ciphertext"`
}

// Encrypt seals plaintext under password using the given profile, returning
// a Blob ready to be embedded in a keystore file.
func Encrypt(plaintext []byte, password string, profile Profile) (*Blob, error) {
	salt, err := RandomBytes(saltLen)
	if err != nil {
		return nil, fmt.Errorf("vault: generating salt: %w", err)
	}

	switch profile {
	case ProfileArgon2ID, "":
		return encryptArgon2(plaintext, password, salt)
	case ProfilePBKDF2:
		return encryptPBKDF2(plaintext, password, salt)
	default:
		return nil, fmt.Errorf("vault: unknown profile %q", profile)
	}
}

func encryptArgon2(plaintext []byte, password string, salt []byte) (*Blob, error) {
	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: building XChaCha20-Poly1305: %w", err)
	}

	nonce, err := RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("vault: generating nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &Blob{
		Version: 1,
		Alg:     "xchacha20poly1305",
		KDF:     "argon2id",
		KDFParams: map[string]int{
			"time":    argon2Time,
			"memory":  argon2Memory,
			"threads": argon2Threads,
		},
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

func encryptPBKDF2(plaintext []byte, password string, salt []byte) (*Blob, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha512.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: building AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: building AES-GCM: %w", err)
	}

	nonce, err := RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("vault: generating nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &Blob{
		Version: 1,
		Alg:     "aes-256-gcm",
		KDF:     "pbkdf2-sha512",
		KDFParams: map[string]int{
			"iterations": pbkdf2Iterations,
		},
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Decrypt opens blob with password, returning ErrWrongPassword on any
// authentication failure.
func Decrypt(blob *Blob, password string) ([]byte, error) {
	switch blob.KDF {
	case "argon2id":
		return decryptArgon2(blob, password)
	case "pbkdf2-sha512":
		return decryptPBKDF2(blob, password)
	default:
		return nil, fmt.Errorf("vault: unknown kdf %q", blob.KDF)
	}
}

func decryptArgon2(blob *Blob, password string) ([]byte, error) {
	timeParam := uint32(blob.KDFParams["time"])
	memParam := uint32(blob.KDFParams["memory"])
	threadsParam := uint8(blob.KDFParams["threads"])

	key := argon2.IDKey([]byte(password), blob.Salt, timeParam, memParam, threadsParam, argon2KeyLen)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: building XChaCha20-Poly1305: %w", err)
	}

	plaintext, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

func decryptPBKDF2(blob *Blob, password string) ([]byte, error) {
	iterations := blob.KDFParams["iterations"]
	if iterations <= 0 {
		iterations = pbkdf2Iterations
	}

	key := pbkdf2.Key([]byte(password), blob.Salt, iterations, pbkdf2KeyLen, sha512.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: building AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: building AES-GCM: %w", err)
	}

	plaintext, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroBytes overwrites b with zeroes in place. Callers holding decrypted
// seed or key material outside a SecureBytes wrapper use this to scrub it
// before dropping references.
func ZeroBytes(b []byte) {
	zero(b)
}
