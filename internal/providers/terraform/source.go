package terraform

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

// Fetch error codes.
const (
	codeParse   = "ParseError"
	codeDynamic = "DynamicExpression"
)

// entry is one policy-bearing block found in the configuration.
type entry struct {
	attr  *hclsyntax.Attribute // inline JSON policy attribute
	block *hclsyntax.Block     // aws_iam_policy_document data source
	err   error                // file could not be parsed
}

// policySource walks a directory of .tf files and yields each inline policy
// attribute and each aws_iam_policy_document data source.
type policySource struct {
	dir    string
	logger zerolog.Logger

	entries map[string]entry // resource ID → block
}

func newPolicySource(dir string, logger zerolog.Logger) *policySource {
	return &policySource{dir: dir, logger: logger, entries: make(map[string]entry)}
}

func (s *policySource) Kind() models.ResourceKind { return models.KindTerraformPolicy }
func (s *policySource) CollectionName() string    { return "Terraform Policies" }

func (s *policySource) Messages() scanner.Messages {
	return scanner.Messages{
		ListDescription:     "Failed to read Terraform configuration",
		ListRecommendation:  "Ensure the directory exists and is readable",
		FetchDescription:    "Failed to evaluate policy document",
		FetchRecommendation: "Use a literal policy string or jsonencode of literal values",
	}
}

// ListResources parses every .tf file under dir in lexical order. A file
// that does not parse is listed once under its path so that the failure
// surfaces as a fetch error.
func (s *policySource) ListResources(ctx context.Context) ([]models.Resource, error) {
	parser := hclparse.NewParser()
	var resources []models.Resource

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != s.dir && (d.Name() == ".terraform" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".tf") {
			return nil
		}

		rel, relErr := filepath.Rel(s.dir, path)
		if relErr != nil {
			rel = path
		}
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			s.logger.Warn().Str("file", rel).Msg("terraform file does not parse")
			res := models.Resource{Name: rel, ID: rel, Kind: models.KindTerraformPolicy}
			s.entries[res.ID] = entry{err: fmt.Errorf("parse %s: %s", rel, diags.Error())}
			resources = append(resources, res)
			return nil
		}
		body, ok := file.Body.(*hclsyntax.Body)
		if !ok {
			return nil
		}
		resources = append(resources, s.collect(rel, body)...)
		return nil
	})
	if err != nil {
		return nil, &scanner.ListingError{Kind: s.Kind(), Err: err}
	}
	return resources, nil
}

func (s *policySource) collect(rel string, body *hclsyntax.Body) []models.Resource {
	var out []models.Resource
	for _, blk := range body.Blocks {
		if len(blk.Labels) < 2 {
			continue
		}
		typ, name := blk.Labels[0], blk.Labels[1]
		switch blk.Type {
		case "resource":
			attrName, ok := policyAttributes[typ]
			if !ok {
				continue
			}
			attr, ok := blk.Body.Attributes[attrName]
			if !ok {
				continue
			}
			res := resourceFor(rel, typ+"."+name, blk.DefRange())
			s.entries[res.ID] = entry{attr: attr}
			out = append(out, res)
		case "data":
			if typ != policyDocumentData {
				continue
			}
			res := resourceFor(rel, "data."+typ+"."+name, blk.DefRange())
			s.entries[res.ID] = entry{block: blk}
			out = append(out, res)
		}
	}
	return out
}

func resourceFor(rel, address string, rng hcl.Range) models.Resource {
	return models.Resource{
		Name: address,
		ID:   fmt.Sprintf("%s:%d", rel, rng.Start.Line),
		Kind: models.KindTerraformPolicy,
	}
}

// FetchPolicy evaluates the block behind res. Expressions that depend on
// variables, other resources or functions besides jsonencode cannot be
// evaluated offline and become fetch errors.
func (s *policySource) FetchPolicy(_ context.Context, res models.Resource) (policydoc.Document, error) {
	e, ok := s.entries[res.ID]
	if !ok {
		return nil, scanner.ErrNoPolicy
	}
	switch {
	case e.err != nil:
		return nil, &scanner.FetchError{Resource: res, Code: codeParse, Err: e.err}
	case e.attr != nil:
		raw, err := staticString(e.attr.Expr)
		if err != nil {
			return nil, &scanner.FetchError{Resource: res, Code: codeDynamic, Err: err}
		}
		if strings.TrimSpace(raw) == "" {
			return nil, scanner.ErrNoPolicy
		}
		return policydoc.JSON(raw), nil
	case e.block != nil:
		tree, err := documentTree(e.block.Body)
		if err != nil {
			return nil, &scanner.FetchError{Resource: res, Code: codeDynamic, Err: err}
		}
		stmts, err := policydoc.ParseTree(tree)
		if err != nil {
			return nil, &scanner.FetchError{Resource: res, Code: codeParse, Err: err}
		}
		return policydoc.Parsed(stmts), nil
	}
	return nil, scanner.ErrNoPolicy
}
