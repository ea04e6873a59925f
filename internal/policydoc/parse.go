package policydoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
)

// ParseError reports a policy document that cannot be interpreted as a
// sequence of statements. Scanners convert it into an access-error finding.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse policy document: %s: %v", e.Reason, e.Err)
	}
	return "parse policy document: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is a fetched policy that has not been parsed yet.
type Document interface {
	Statements() ([]Statement, error)
}

// JSON is a policy document in its JSON text form.
type JSON []byte

// Statements implements Document.
func (d JSON) Statements() ([]Statement, error) { return Parse(d) }

// URLEncoded is a JSON policy document as returned by the IAM API, which
// percent-encodes policy text.
type URLEncoded string

// Statements implements Document.
func (d URLEncoded) Statements() ([]Statement, error) {
	decoded, err := url.QueryUnescape(string(d))
	if err != nil {
		return nil, &ParseError{Reason: "url-decode document", Err: err}
	}
	return Parse([]byte(decoded))
}

// Parsed is a Document that is already parsed. Provider adapters that
// translate a non-JSON policy model (e.g. GCP IAM bindings) return it.
type Parsed []Statement

// Statements implements Document.
func (d Parsed) Statements() ([]Statement, error) { return d, nil }

// Parse decodes a JSON policy document into its statements.
// An absent "Statement" key yields an empty slice and no error.
func Parse(raw []byte) ([]Statement, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Err: err}
	}
	// Only whitespace may follow the document.
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, &ParseError{Reason: "trailing data after document", Err: err}
	}
	return ParseTree(tree)
}

// ParseTree converts an already-decoded document (maps, slices, strings)
// into statements.
func ParseTree(tree any) ([]Statement, error) {
	doc, ok := tree.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: fmt.Sprintf("document is %s, want object", typeName(tree))}
	}

	raw, ok := doc["Statement"]
	if !ok || raw == nil {
		return []Statement{}, nil
	}

	var elems []any
	switch v := raw.(type) {
	case []any:
		elems = v
	case map[string]any:
		elems = []any{v}
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("Statement is %s, want array or object", typeName(raw))}
	}

	statements := make([]Statement, 0, len(elems))
	for i, e := range elems {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("Statement[%d] is %s, want object", i, typeName(e))}
		}
		statements = append(statements, parseStatement(m))
	}
	return statements, nil
}

func parseStatement(m map[string]any) Statement {
	return Statement{
		sid:        stringValue(m["Sid"]),
		effect:     stringValue(m["Effect"]),
		principal:  parsePrincipal(m["Principal"]),
		actions:    stringSet(m["Action"]),
		resources:  stringSet(m["Resource"]),
		conditions: parseConditions(m["Condition"]),
	}
}

func parsePrincipal(v any) Principal {
	switch p := v.(type) {
	case string:
		if p == "*" {
			return WildcardPrincipal()
		}
		if p == "" {
			return Principal{}
		}
		return IdentityPrincipal(p)
	case map[string]any:
		out := Principal{
			services:  stringSet(p["Service"]),
			federated: stringSet(p["Federated"]),
		}
		if ids := stringSet(p["AWS"]); len(ids) > 0 {
			out.kind = PrincipalIdentities
			out.identities = ids
		}
		return out
	}
	return Principal{}
}

func parseConditions(v any) map[string]map[string][]string {
	ops, ok := v.(map[string]any)
	if !ok {
		return map[string]map[string][]string{}
	}
	out := make(map[string]map[string][]string, len(ops))
	for op, body := range ops {
		inner := map[string][]string{}
		if byKey, ok := body.(map[string]any); ok {
			for k, val := range byKey {
				inner[k] = conditionValues(val)
			}
		}
		out[op] = inner
	}
	return out
}

// stringSet normalises a string-or-list field to a list. Non-string list
// members are dropped.
func stringSet(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// conditionValues is like stringSet but keeps scalar values such as
// booleans and numbers in their textual form.
func conditionValues(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := scalarString(e); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		if s, ok := scalarString(t); ok {
			return []string{s}
		}
	}
	return []string{}
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool, float64, int, int64:
		return fmt.Sprint(t), true
	}
	return "", false
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// SortedKeys returns the keys of m in lexical order. Used where
// deterministic iteration over condition operators matters.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasSuffixAny reports whether any value ends with suffix.
func HasSuffixAny(values []string, suffix string) bool {
	for _, v := range values {
		if strings.HasSuffix(v, suffix) {
			return true
		}
	}
	return false
}
