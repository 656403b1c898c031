package contract

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// FuncValidator is a pure function validating (and possibly normalizing) a
// decoded value of type T. It is the "function validator" of spec §3/§4.2
// and, when present alongside a SchemaValidator on the same descriptor
// side, takes precedence over it.
type FuncValidator[T any] func(T) (T, error)

// SchemaValidator is the "Standard-Schema-style" validator of spec §3: it
// operates on the raw, not-yet-unmarshaled wire bytes of the payload and
// returns the (possibly normalized) bytes, or an error. Operating on raw
// bytes lets a schema validator use gjson to inspect specific fields
// without committing to a concrete Go struct, matching how a TypeScript
// Standard Schema validates an arbitrary JSON value.
type SchemaValidator func(raw json.RawMessage) (json.RawMessage, error)

// rawValidator is the type-erased form every descriptor stores: a single
// function from raw wire bytes to (possibly normalized) raw wire bytes.
type rawValidator func(raw json.RawMessage) (json.RawMessage, error)

// compile builds a rawValidator from an optional function validator and an
// optional schema validator, honoring the precedence rule from spec §4.2:
// the function validator runs if present; the schema validator is
// consulted only when no function validator was supplied. If neither is
// set, the payload passes through unchanged — descriptors are not required
// to validate.
func compile[T any](fn FuncValidator[T], schema SchemaValidator) rawValidator {
	return func(raw json.RawMessage) (json.RawMessage, error) {
		if fn != nil {
			var value T
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &value); err != nil {
					return nil, fmt.Errorf("contract: decode payload: %w", err)
				}
			}
			validated, err := fn(value)
			if err != nil {
				return nil, err
			}
			out, err := json.Marshal(validated)
			if err != nil {
				return nil, fmt.Errorf("contract: encode validated payload: %w", err)
			}
			return out, nil
		}
		if schema != nil {
			return schema(raw)
		}
		return raw, nil
	}
}

// RequireNonEmpty returns a SchemaValidator that fails unless every named
// gjson path resolves to a present, non-empty value — a common shape
// check (spec §8 scenario 5's "userJoined" with an empty userId) that
// doesn't require unmarshaling into a Go struct first.
func RequireNonEmpty(fields ...string) SchemaValidator {
	return func(raw json.RawMessage) (json.RawMessage, error) {
		for _, field := range fields {
			result := gjson.GetBytes(raw, field)
			if !result.Exists() || result.String() == "" {
				return nil, fmt.Errorf("contract: field %q is required", field)
			}
		}
		return raw, nil
	}
}
