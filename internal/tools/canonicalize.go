package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/datalens-mcp/datalens-mcp/internal/datalens"
)

// Canonicalize builds the request payload for one tool invocation. Typed
// fields are written first; any argument key not claimed by a field spec is
// carried through verbatim and merged after them in sorted key order, so an
// extra field with the same payload key deliberately overwrites the typed
// value. That override order is a compatibility contract, not an accident.
//
// No network activity happens here; a returned error is always an
// invalid-arguments classification.
func Canonicalize(t Tool, args map[string]any) (map[string]any, error) {
	payload := make(map[string]any, len(args)+2)
	consumed := make(map[string]bool, len(args))

	for _, f := range t.Fields {
		value, name, present := resolveField(f, args)
		for _, n := range f.Names {
			if _, ok := args[n]; ok {
				consumed[n] = true
			}
		}

		if !present {
			if f.Required {
				return nil, &datalens.ArgumentError{Method: t.Method, Field: f.Names[0], Reason: "is required"}
			}
			if f.Default != nil {
				payload[f.Key] = f.Default
			}
			continue
		}

		shaped, err := shapeValue(f, name, value)
		if err != nil {
			return nil, stampMethod(err, t.Method)
		}
		payload[f.Key] = shaped
	}

	for _, key := range extraKeys(args, consumed) {
		payload[key] = args[key]
	}
	return payload, nil
}

// resolveField scans the accepted names in declaration order and takes the
// first non-null hit. A JSON null counts as absent; supplying a value under
// several names at once is tolerated and never rejected.
func resolveField(f Field, args map[string]any) (any, string, bool) {
	for _, name := range f.Names {
		if v, ok := args[name]; ok && v != nil {
			return v, name, true
		}
	}
	return nil, "", false
}

func shapeValue(f Field, name string, value any) (any, error) {
	switch f.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return nil, &datalens.ArgumentError{Field: name, Reason: "must be a string"}
		}
		return s, nil
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, &datalens.ArgumentError{Field: name, Reason: "must be a boolean"}
		}
		return b, nil
	case KindNumber:
		switch value.(type) {
		case json.Number, float64, int, int64:
			return value, nil
		}
		return nil, &datalens.ArgumentError{Field: name, Reason: "must be a number"}
	case KindJSON:
		return NormalizeJSONValue(value, name)
	default:
		return nil, fmt.Errorf("unhandled field kind %d for %q", f.Kind, name)
	}
}

// NormalizeJSONValue resolves string-or-object polymorphic fields in one
// place. A string whose trimmed form starts with '{' or '[' is parsed as
// JSON; any other string, and every non-string value, passes through
// unchanged. A string that looks like JSON but does not parse is an error
// naming the field.
func NormalizeJSONValue(value any, fieldName string) (any, error) {
	raw, ok := value.(string)
	if !ok {
		return value, nil
	}

	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return raw, nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, &datalens.ArgumentError{
			Field:  fieldName,
			Reason: fmt.Sprintf("must be valid JSON when passed as a string: %v", err),
		}
	}
	return parsed, nil
}

// stampMethod fills in the method name on argument errors raised below the
// tool level, so every error leaving the canonicalizer names its method.
func stampMethod(err error, method string) error {
	var argErr *datalens.ArgumentError
	if errors.As(err, &argErr) && argErr.Method == "" {
		argErr.Method = method
	}
	return err
}

func extraKeys(args map[string]any, consumed map[string]bool) []string {
	keys := make([]string, 0)
	for k := range args {
		if !consumed[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
