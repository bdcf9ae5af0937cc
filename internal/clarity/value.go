// Package clarity implements the subset of the Clarity value model and its
// canonical binary serialization that SIP-018 structured-data signing
// needs: the tagged value union, sorted-tuple encoding, and a best-effort
// JSON-to-Value conversion for callers building domains/messages from
// loosely-typed input.
package clarity

import "math/big"

// Kind tags a Value's variant.
type Kind byte

// Clarity value type prefixes, per the Clarity consensus serialization
// format used for contract-call arguments and structured-data hashing.
const (
	KindInt            Kind = 0x00
	KindUInt           Kind = 0x01
	KindBuffer         Kind = 0x02
	KindBoolTrue       Kind = 0x03
	KindBoolFalse      Kind = 0x04
	KindPrincipalStd   Kind = 0x05
	KindPrincipalContr Kind = 0x06
	KindResponseOk     Kind = 0x07
	KindResponseErr    Kind = 0x08
	KindOptionalNone   Kind = 0x09
	KindOptionalSome   Kind = 0x0a
	KindList           Kind = 0x0b
	KindTuple          Kind = 0x0c
	KindStringASCII    Kind = 0x0d
	KindStringUTF8     Kind = 0x0e
)

// Principal identifies a standard or contract principal.
type Principal struct {
	Version      byte
	Hash160      []byte // 20 bytes
	ContractName string // empty for a standard principal
}

// IsContract reports whether p names a contract principal.
func (p Principal) IsContract() bool {
	return p.ContractName != ""
}

// Value is a Clarity value. Exactly one of the typed fields is populated,
// selected by Kind.
type Value struct {
	Kind Kind

	Int       *big.Int    // KindInt, KindUInt
	Buffer    []byte      // KindBuffer
	Principal Principal   // KindPrincipalStd, KindPrincipalContr
	Wrapped   *Value      // KindResponseOk, KindResponseErr, KindOptionalSome
	List      []Value     // KindList
	Tuple     map[string]Value // KindTuple
	String    string      // KindStringASCII, KindStringUTF8
}

// Int128 builds a signed Clarity int value.
func Int128(v int64) Value { return Value{Kind: KindInt, Int: big.NewInt(v)} }

// UInt128 builds an unsigned Clarity uint value.
func UInt128(v uint64) Value { return Value{Kind: KindUInt, Int: new(big.Int).SetUint64(v)} }

// Bool builds a Clarity bool value.
func Bool(v bool) Value {
	if v {
		return Value{Kind: KindBoolTrue}
	}
	return Value{Kind: KindBoolFalse}
}

// BufferValue builds a Clarity buffer value.
func BufferValue(b []byte) Value { return Value{Kind: KindBuffer, Buffer: b} }

// StringASCII builds a Clarity string-ascii value.
func StringASCII(s string) Value { return Value{Kind: KindStringASCII, String: s} }

// StringUTF8 builds a Clarity string-utf8 value.
func StringUTF8(s string) Value { return Value{Kind: KindStringUTF8, String: s} }

// StandardPrincipal builds a Clarity standard principal value.
func StandardPrincipal(version byte, hash160 []byte) Value {
	return Value{Kind: KindPrincipalStd, Principal: Principal{Version: version, Hash160: hash160}}
}

// ContractPrincipal builds a Clarity contract principal value.
func ContractPrincipal(version byte, hash160 []byte, contractName string) Value {
	return Value{
		Kind:      KindPrincipalContr,
		Principal: Principal{Version: version, Hash160: hash160, ContractName: contractName},
	}
}

// List builds a Clarity list value.
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }

// Tuple builds a Clarity tuple value. Field order in the map is
// irrelevant — Serialize always sorts field names byte-wise.
func Tuple(fields map[string]Value) Value { return Value{Kind: KindTuple, Tuple: fields} }

// Some wraps v in a Clarity optional-some value.
func Some(v Value) Value { return Value{Kind: KindOptionalSome, Wrapped: &v} }

// None builds a Clarity optional-none value.
func None() Value { return Value{Kind: KindOptionalNone} }

// Ok wraps v in a Clarity response-ok value.
func Ok(v Value) Value { return Value{Kind: KindResponseOk, Wrapped: &v} }

// Err wraps v in a Clarity response-err value.
func Err(v Value) Value { return Value{Kind: KindResponseErr, Wrapped: &v} }
