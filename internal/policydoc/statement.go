// Package policydoc parses access-policy documents into immutable statements.
//
// A policy document arrives from a provider API as JSON (S3 bucket policies,
// IAM documents after URL-unescaping, Terraform policy strings) or as an
// already-decoded tree. Every field that may be encoded as either a single
// string or a list of strings is normalised to a list, and every missing field
// defaults to an empty value so rules never need nil checks.
package policydoc

// PrincipalKind distinguishes the encodings a statement principal can take.
type PrincipalKind int

const (
	// PrincipalAbsent means the statement has no Principal element
	// (identity-based policies never do).
	PrincipalAbsent PrincipalKind = iota
	// PrincipalWildcard means Principal is the literal string "*".
	PrincipalWildcard
	// PrincipalIdentities means Principal names one or more identities.
	PrincipalIdentities
)

// Principal is the identity (or wildcard) a statement applies to.
type Principal struct {
	kind       PrincipalKind
	identities []string
	services   []string
	federated  []string
}

// WildcardPrincipal returns the literal "*" principal.
func WildcardPrincipal() Principal {
	return Principal{kind: PrincipalWildcard}
}

// IdentityPrincipal returns a principal naming the given account identities.
// With no identities the principal is absent.
func IdentityPrincipal(ids ...string) Principal {
	if len(ids) == 0 {
		return Principal{}
	}
	return Principal{kind: PrincipalIdentities, identities: cloneStrings(ids)}
}

// Kind returns how the principal was encoded.
func (p Principal) Kind() PrincipalKind { return p.kind }

// Identities returns the account identities (the "AWS" principal key, or a
// bare identity string). The slice is a copy.
func (p Principal) Identities() []string { return cloneStrings(p.identities) }

// Services returns service principals (e.g. "ec2.amazonaws.com").
// They are retained for reporting and are not account identities.
func (p Principal) Services() []string { return cloneStrings(p.services) }

// Federated returns federated principals (OIDC/SAML providers).
func (p Principal) Federated() []string { return cloneStrings(p.federated) }

// Statement is one principal/action/resource/condition clause of a policy.
// It is immutable: accessors return copies.
type Statement struct {
	sid        string
	effect     string
	principal  Principal
	actions    []string
	resources  []string
	conditions map[string]map[string][]string
}

// StatementInput carries the fields of a statement built directly by a
// provider adapter that does not speak the JSON policy grammar.
type StatementInput struct {
	Sid        string
	Effect     string
	Principal  Principal
	Actions    []string
	Resources  []string
	Conditions map[string]map[string][]string
}

// NewStatement builds an immutable statement from in.
func NewStatement(in StatementInput) Statement {
	return Statement{
		sid:        in.Sid,
		effect:     in.Effect,
		principal:  in.Principal,
		actions:    cloneStrings(in.Actions),
		resources:  cloneStrings(in.Resources),
		conditions: cloneConditions(in.Conditions),
	}
}

func (s Statement) Sid() string          { return s.sid }
func (s Statement) Effect() string       { return s.effect }
func (s Statement) Principal() Principal { return s.principal }
func (s Statement) Actions() []string    { return cloneStrings(s.actions) }
func (s Statement) Resources() []string  { return cloneStrings(s.resources) }

// Conditions returns operator → condition key → values.
func (s Statement) Conditions() map[string]map[string][]string {
	return cloneConditions(s.conditions)
}

// HasConditions reports whether any condition operator is present, whether or
// not it actually restricts anything.
func (s Statement) HasConditions() bool { return len(s.conditions) > 0 }

// ConditionKeys returns every condition key across all operators.
func (s Statement) ConditionKeys() []string {
	var keys []string
	for _, op := range SortedKeys(s.conditions) {
		keys = append(keys, SortedKeys(s.conditions[op])...)
	}
	return keys
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneConditions(in map[string]map[string][]string) map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(in))
	for op, byKey := range in {
		inner := make(map[string][]string, len(byKey))
		for k, v := range byKey {
			inner[k] = cloneStrings(v)
		}
		out[op] = inner
	}
	return out
}
