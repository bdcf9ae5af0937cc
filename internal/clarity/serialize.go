package clarity

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// ErrValueTooLarge is returned when a buffer, string, or list exceeds the
// consensus-serialization length that fits in a uint32 field.
var ErrValueTooLarge = errors.New("clarity: value exceeds serializable length")

const int128Bytes = 16

// Serialize encodes v using the Clarity consensus binary format: the same
// byte layout used for contract-call arguments and, by extension, for
// SIP-018 domain and message hashing.
func Serialize(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := serializeInto(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func serializeInto(buf *bytes.Buffer, v Value) error {
	buf.WriteByte(byte(v.Kind))

	switch v.Kind {
	case KindInt:
		return writeInt128(buf, v.Int, true)
	case KindUInt:
		return writeInt128(buf, v.Int, false)
	case KindBoolTrue, KindBoolFalse:
		return nil
	case KindBuffer:
		return writeLengthPrefixed(buf, v.Buffer)
	case KindStringASCII, KindStringUTF8:
		return writeLengthPrefixed(buf, []byte(v.String))
	case KindPrincipalStd:
		return writePrincipal(buf, v.Principal)
	case KindPrincipalContr:
		return writePrincipal(buf, v.Principal)
	case KindOptionalNone:
		return nil
	case KindOptionalSome, KindResponseOk, KindResponseErr:
		if v.Wrapped == nil {
			return fmt.Errorf("clarity: kind 0x%02x missing wrapped value", v.Kind)
		}
		return serializeInto(buf, *v.Wrapped)
	case KindList:
		return writeList(buf, v.List)
	case KindTuple:
		return writeTuple(buf, v.Tuple)
	default:
		return fmt.Errorf("clarity: unknown kind 0x%02x", v.Kind)
	}
}

func writeInt128(buf *bytes.Buffer, n *big.Int, signed bool) error {
	if n == nil {
		n = new(big.Int)
	}

	out := make([]byte, int128Bytes)

	if signed && n.Sign() < 0 {
		// Two's complement: (1<<128) + n
		mod := new(big.Int).Lsh(big.NewInt(1), 128)
		mod.Add(mod, n)
		mod.FillBytes(out)
	} else {
		n.FillBytes(out)
	}

	buf.Write(out)
	return nil
}

func writeLengthPrefixed(buf *bytes.Buffer, data []byte) error {
	if len(data) > 0xFFFFFFFF {
		return ErrValueTooLarge
	}
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(data))) //nolint:gosec // G115: bounds-checked above
	buf.Write(lenBytes[:])
	buf.Write(data)
	return nil
}

func writePrincipal(buf *bytes.Buffer, p Principal) error {
	buf.WriteByte(p.Version)
	if len(p.Hash160) != 20 {
		return fmt.Errorf("clarity: principal hash160 must be 20 bytes, got %d", len(p.Hash160))
	}
	buf.Write(p.Hash160)

	if p.IsContract() {
		return writeLengthPrefixed1(buf, []byte(p.ContractName))
	}
	return nil
}

func writeLengthPrefixed1(buf *bytes.Buffer, data []byte) error {
	if len(data) > 0xFF {
		return ErrValueTooLarge
	}
	buf.WriteByte(byte(len(data)))
	buf.Write(data)
	return nil
}

func writeList(buf *bytes.Buffer, items []Value) error {
	if len(items) > 0xFFFFFFFF {
		return ErrValueTooLarge
	}
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(items))) //nolint:gosec // G115: bounds-checked above
	buf.Write(lenBytes[:])

	for _, item := range items {
		if err := serializeInto(buf, item); err != nil {
			return err
		}
	}
	return nil
}

func writeTuple(buf *bytes.Buffer, fields map[string]Value) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0xFFFFFFFF {
		return ErrValueTooLarge
	}
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(names))) //nolint:gosec // G115: bounds-checked above
	buf.Write(lenBytes[:])

	for _, name := range names {
		if err := writeLengthPrefixed1(buf, []byte(name)); err != nil {
			return err
		}
		if err := serializeInto(buf, fields[name]); err != nil {
			return err
		}
	}
	return nil
}
