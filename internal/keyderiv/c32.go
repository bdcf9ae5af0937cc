package keyderiv

import (
	"crypto/sha256"
	"errors"
	"math/big"
	"strings"
)

// c32Alphabet is the base32 alphabet Stacks addresses use: digits and
// uppercase letters with the visually ambiguous I, L, O, U removed.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ErrInvalidC32Character is returned when decoding encounters a byte
// outside the c32 alphabet.
var ErrInvalidC32Character = errors.New("keyderiv: invalid c32 character")

// ErrInvalidC32Checksum is returned when a c32check string's checksum
// does not match its payload.
var ErrInvalidC32Checksum = errors.New("keyderiv: invalid c32check checksum")

var c32AlphabetIndex = func() map[byte]int {
	m := make(map[byte]int, len(c32Alphabet))
	for i := 0; i < len(c32Alphabet); i++ {
		m[c32Alphabet[i]] = i
	}
	return m
}()

// c32Encode encodes data as base32 using the c32 alphabet. Leading zero
// bytes are preserved as leading '0' characters, the same convention the
// derivation package's base58 encoder uses for leading zero bytes.
func c32Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	zeroCount := 0
	for _, b := range data {
		if b != 0 {
			break
		}
		zeroCount++
	}

	num := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	mod := new(big.Int)

	var out []byte
	for num.Sign() > 0 {
		num.DivMod(num, base, mod)
		out = append(out, c32Alphabet[mod.Int64()])
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return strings.Repeat("0", zeroCount) + string(out)
}

// c32Decode reverses c32Encode.
func c32Decode(s string) ([]byte, error) {
	s = strings.ToUpper(s)
	if s == "" {
		return nil, nil
	}

	zeroCount := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '0' {
			break
		}
		zeroCount++
	}

	num := new(big.Int)
	base := big.NewInt(32)
	digit := new(big.Int)

	for i := 0; i < len(s); i++ {
		idx, ok := c32AlphabetIndex[s[i]]
		if !ok {
			return nil, ErrInvalidC32Character
		}
		digit.SetInt64(int64(idx))
		num.Mul(num, base)
		num.Add(num, digit)
	}

	decoded := num.Bytes()
	return append(make([]byte, zeroCount), decoded...), nil
}

// c32CheckEncode implements Stacks' c32check encoding: a version byte and
// a payload (the 20-byte hash160 of a public key) are hashed twice with
// SHA-256, the first four bytes of that digest are appended as a
// checksum, and the version-byte-plus-payload-plus-checksum is c32-encoded.
// The single-character version prefix used by Stacks addresses is
// prepended so the full string round-trips the version without a
// separate out-of-band field.
func c32CheckEncode(version byte, payload []byte) string {
	checksum := c32Checksum(version, payload)

	body := make([]byte, 0, len(payload)+len(checksum))
	body = append(body, payload...)
	body = append(body, checksum...)

	return string(c32Alphabet[version]) + c32Encode(body)
}

func c32Checksum(version byte, payload []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, payload...))
	second := sha256.Sum256(first[:])
	return second[:4]
}

// StacksAddress returns the c32check Stacks address for a given network
// version byte and 20-byte hash160.
func StacksAddress(version byte, hash160 []byte) string {
	return "S" + c32CheckEncode(version, hash160)
}

// ErrInvalidStacksAddress is returned when a string does not have the
// "S" + version-char + c32check-body shape a Stacks address requires.
var ErrInvalidStacksAddress = errors.New("keyderiv: invalid Stacks address")

// DecodeStacksAddress reverses StacksAddress, returning the version byte
// and 20-byte hash160 encoded in addr. A ".contract-name" suffix, if
// present, is stripped and returned separately.
func DecodeStacksAddress(addr string) (version byte, hash160 []byte, contractName string, err error) {
	if dot := strings.IndexByte(addr, '.'); dot >= 0 {
		contractName = addr[dot+1:]
		addr = addr[:dot]
	}

	if len(addr) < 2 || addr[0] != 'S' {
		return 0, nil, "", ErrInvalidStacksAddress
	}

	versionChar := addr[1]
	idx, ok := c32AlphabetIndex[versionChar]
	if !ok {
		return 0, nil, "", ErrInvalidC32Character
	}
	version = byte(idx)

	body, err := c32Decode(addr[2:])
	if err != nil {
		return 0, nil, "", err
	}
	if len(body) < 24 {
		return 0, nil, "", ErrInvalidStacksAddress
	}

	payload := body[:len(body)-4]
	checksum := body[len(body)-4:]
	expected := c32Checksum(version, payload)
	if string(checksum) != string(expected) {
		return 0, nil, "", ErrInvalidC32Checksum
	}

	return version, payload, contractName, nil
}
