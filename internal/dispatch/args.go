package dispatch

import (
	"math"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Args are the named arguments of a command as decoded by a transport.
// Integers may arrive as any Go integer kind or as an integral float64.
type Args map[string]any

func (a Args) has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

func (a Args) int(name string) (int, error) {
	n, ok := toInt(a[name])
	if !ok {
		return 0, contracts.Errorf(contracts.CodeInvalidArgument, "%s must be an integer, got %T", name, a[name])
	}
	return n, nil
}

// requiredInt returns argument name, which must be an integer in [lo, hi].
func (a Args) requiredInt(name string, lo, hi int) (int, error) {
	if !a.has(name) {
		return 0, contracts.Errorf(contracts.CodeInvalidArgument, "%s is required", name)
	}
	n, err := a.int(name)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, contracts.Errorf(contracts.CodeInvalidArgument, "%s %d outside %d-%d", name, n, lo, hi)
	}
	return n, nil
}

// optionalInt is requiredInt with a default for a missing argument.
func (a Args) optionalInt(name string, def, lo, hi int) (int, error) {
	if !a.has(name) {
		return def, nil
	}
	return a.requiredInt(name, lo, hi)
}

func (a Args) requiredID(name string) (contracts.InstanceID, error) {
	n, err := a.requiredInt(name, 0, math.MaxInt32)
	return contracts.InstanceID(n), err
}

// optionalID reports ok=false when the id is absent.
func (a Args) optionalID(name string) (id contracts.InstanceID, ok bool, err error) {
	if !a.has(name) {
		return 0, false, nil
	}
	id, err = a.requiredID(name)
	return id, err == nil, err
}

// source extracts the soundfont source: "data" as bytes, or "path".
func (a Args) source() (Source, error) {
	if a.has("data") {
		switch v := a["data"].(type) {
		case []byte:
			if len(v) == 0 {
				return Source{}, contracts.Errorf(contracts.CodeInvalidArgument, "data is empty")
			}
			return Source{Data: v}, nil
		default:
			return Source{}, contracts.Errorf(contracts.CodeInvalidArgument, "data must be bytes, got %T", v)
		}
	}
	if a.has("path") {
		p, ok := a["path"].(string)
		if !ok {
			return Source{}, contracts.Errorf(contracts.CodeInvalidArgument, "path must be a string, got %T", a["path"])
		}
		if p == "" {
			return Source{}, contracts.Errorf(contracts.CodeInvalidArgument, "path is empty")
		}
		return Source{Path: p}, nil
	}
	return Source{}, contracts.Errorf(contracts.CodeInvalidArgument, "soundfont data or path is required")
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return clampInt64(n)
	case uint:
		return clampUint64(uint64(n))
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return clampUint64(n)
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	default:
		return 0, false
	}
}

func clampInt64(n int64) (int, bool) {
	if n > math.MaxInt || n < math.MinInt {
		return 0, false
	}
	return int(n), true
}

func clampUint64(n uint64) (int, bool) {
	if n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func fromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
