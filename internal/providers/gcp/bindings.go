package gcp

import (
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
)

// Public member identifiers. Both grant access to principals outside the
// project and are treated as the "*" identity.
const (
	memberAllUsers              = "allUsers"
	memberAllAuthenticatedUsers = "allAuthenticatedUsers"
)

// roleOwner is the basic role with full control of a project.
const roleOwner = "roles/owner"

// bindingStatements converts role bindings into policy statements. Each
// binding becomes one statement whose Sid is the role, whose actions are the
// role and whose resources are the given resource names. A condition is
// carried as {"cel": {"expression": [expr]}}.
func bindingStatements(bindings []binding, resources []string) policydoc.Parsed {
	out := make(policydoc.Parsed, 0, len(bindings))
	for _, b := range bindings {
		in := policydoc.StatementInput{
			Sid:       b.Role,
			Effect:    "Allow",
			Principal: memberPrincipal(b.Members),
			Actions:   []string{b.Role},
			Resources: resources,
		}
		if b.Condition != "" {
			in.Conditions = map[string]map[string][]string{
				"cel": {"expression": {b.Condition}},
			}
		}
		out = append(out, policydoc.NewStatement(in))
	}
	return out
}

// projectStatements is bindingStatements for a project policy. The owner
// role is expanded to Action "*" on Resource "*".
func projectStatements(bindings []binding, projectID string) policydoc.Parsed {
	out := make(policydoc.Parsed, 0, len(bindings))
	for _, b := range bindings {
		stmts := bindingStatements([]binding{b}, []string{"projects/" + projectID})
		if b.Role == roleOwner && b.Condition == "" {
			stmts = policydoc.Parsed{policydoc.NewStatement(policydoc.StatementInput{
				Sid:       b.Role,
				Effect:    "Allow",
				Principal: memberPrincipal(b.Members),
				Actions:   []string{"*"},
				Resources: []string{"*"},
			})}
		}
		out = append(out, stmts...)
	}
	return out
}

func memberPrincipal(members []string) policydoc.Principal {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		if m == memberAllUsers || m == memberAllAuthenticatedUsers {
			m = "*"
		}
		ids = append(ids, m)
	}
	return policydoc.IdentityPrincipal(ids...)
}

// objectRoles grant access to the objects of a bucket rather than only to
// the bucket's metadata and listing.
var objectRoles = map[string]bool{
	"roles/storage.admin":              true,
	"roles/storage.objectAdmin":        true,
	"roles/storage.objectCreator":      true,
	"roles/storage.objectUser":         true,
	"roles/storage.objectViewer":       true,
	"roles/storage.legacyObjectOwner":  true,
	"roles/storage.legacyObjectReader": true,
}

// bucketStatements is bindingStatements for a bucket policy. Each binding
// covers the resources its role reaches.
func bucketStatements(bindings []binding, bucket string) policydoc.Parsed {
	out := make(policydoc.Parsed, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, bindingStatements([]binding{b}, bucketResources(bucket, b.Role))...)
	}
	return out
}

// bucketResources returns the resource names a binding of role on bucket
// covers: the bucket itself, plus every object in it for object roles.
func bucketResources(bucket, role string) []string {
	base := "//storage.googleapis.com/projects/_/buckets/" + bucket
	if objectRoles[role] {
		return []string{base, base + "/objects/*"}
	}
	return []string{base}
}
