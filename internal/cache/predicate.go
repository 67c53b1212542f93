package cache

import (
	"regexp"
	"strings"

	"github.com/nostrwatch/relaymon/internal/store"
)

// Predicate decides whether a stored document matches. Predicates compose
// with And/Or and are evaluated lazily during Select.
type Predicate func(store.Doc) bool

// Type names for IsType, following JSON's type system since documents are
// decoded JSON.
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeBool   = "bool"
	TypeObject = "object"
	TypeArray  = "array"
)

// lookup resolves a dotted path ("info.limitation.payment_required") inside
// a document. The second return reports whether the full path was present.
func lookup(d store.Doc, path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// eq compares decoded JSON values, normalizing numeric types so that the
// int 11 a caller writes matches the float64 the decoder produced.
func eq(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	}
	return true
}

// Eq matches documents whose field equals want.
func Eq(path string, want any) Predicate {
	return func(d store.Doc) bool {
		v, ok := lookup(d, path)
		return ok && eq(v, want)
	}
}

// In matches documents whose field equals any of vals.
func In(path string, vals ...any) Predicate {
	return func(d store.Doc) bool {
		v, ok := lookup(d, path)
		if !ok {
			return false
		}
		for _, w := range vals {
			if eq(v, w) {
				return true
			}
		}
		return false
	}
}

// Defined matches documents where the field is present and non-nil.
func Defined(path string) Predicate {
	return func(d store.Doc) bool {
		v, ok := lookup(d, path)
		return ok && v != nil
	}
}

// Undefined is the complement of Defined.
func Undefined(path string) Predicate {
	return func(d store.Doc) bool {
		v, ok := lookup(d, path)
		return !ok || v == nil
	}
}

// IsType matches documents whose field has the given JSON type.
func IsType(path, typ string) Predicate {
	return func(d store.Doc) bool {
		v, ok := lookup(d, path)
		if !ok {
			return false
		}
		switch v.(type) {
		case string:
			return typ == TypeString
		case float64:
			return typ == TypeNumber
		case bool:
			return typ == TypeBool
		case map[string]any:
			return typ == TypeObject
		case []any:
			return typ == TypeArray
		}
		return false
	}
}

// Matches matches string fields against re.
func Matches(path string, re *regexp.Regexp) Predicate {
	return func(d store.Doc) bool {
		v, ok := lookup(d, path)
		if !ok {
			return false
		}
		s, ok := v.(string)
		return ok && re.MatchString(s)
	}
}

// Field applies an arbitrary predicate function to the field's value. The
// function receives nil when the path is absent.
func Field(path string, fn func(any) bool) Predicate {
	return func(d store.Doc) bool {
		v, _ := lookup(d, path)
		return fn(v)
	}
}

// Contains matches array fields that contain want.
func Contains(path string, want any) Predicate {
	return func(d store.Doc) bool {
		v, ok := lookup(d, path)
		if !ok {
			return false
		}
		arr, ok := v.([]any)
		if !ok {
			return false
		}
		for _, item := range arr {
			if eq(item, want) {
				return true
			}
		}
		return false
	}
}

// And matches when every predicate matches. And() matches everything.
func And(ps ...Predicate) Predicate {
	return func(d store.Doc) bool {
		for _, p := range ps {
			if !p(d) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches. Or() matches nothing.
func Or(ps ...Predicate) Predicate {
	return func(d store.Doc) bool {
		for _, p := range ps {
			if p(d) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(d store.Doc) bool { return !p(d) }
}
