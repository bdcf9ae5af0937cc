package clarity

import (
	"fmt"
	"math/big"
)

// FromJSON converts a loosely-typed JSON-decoded value (string, float64,
// bool, nil, []any, map[string]any — whatever encoding/json produces)
// into a Clarity Value using the obvious mapping: strings become
// string-utf8, numbers become int (or uint if non-negative and the
// caller asked for unsigned via AsUint), booleans become bool, nil
// becomes none, arrays become list, and objects become tuple.
//
// This is a convenience for callers building Pillar agent tuples from
// JSON request bodies; callers needing exact Clarity types (buffers,
// principals, string-ascii) should build a Value directly instead.
func FromJSON(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return None(), nil
	case bool:
		return Bool(t), nil
	case string:
		return StringUTF8(t), nil
	case float64:
		return intFromFloat(t), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			cv, err := FromJSON(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, cv)
		}
		return List(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			cv, err := FromJSON(item)
			if err != nil {
				return Value{}, fmt.Errorf("clarity: field %q: %w", k, err)
			}
			fields[k] = cv
		}
		return Tuple(fields), nil
	default:
		return Value{}, fmt.Errorf("clarity: unsupported JSON type %T", v)
	}
}

func intFromFloat(f float64) Value {
	bi, _ := big.NewFloat(f).Int(nil)
	if bi.Sign() >= 0 {
		return Value{Kind: KindUInt, Int: bi}
	}
	return Value{Kind: KindInt, Int: bi}
}
