package terraform

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// policyAttributes maps resource types to the attribute holding an inline
// policy JSON string.
var policyAttributes = map[string]string{
	"aws_iam_policy":       "policy",
	"aws_iam_role_policy":  "policy",
	"aws_iam_user_policy":  "policy",
	"aws_iam_group_policy": "policy",
	"aws_s3_bucket_policy": "policy",
	"aws_iam_role":         "assume_role_policy",
}

// policyDocumentData is the data source type whose statement blocks are
// converted to a policy document.
const policyDocumentData = "aws_iam_policy_document"

// errDynamic reports an expression that references variables, resources or
// functions other than jsonencode and so cannot be evaluated offline.
var errDynamic = errors.New("expression is not statically known")

// evalContext allows jsonencode of literal values and nothing else.
var evalContext = &hcl.EvalContext{
	Functions: map[string]function.Function{
		"jsonencode": stdlib.JSONEncodeFunc,
	},
}

// staticString evaluates expr to a known string.
func staticString(expr hcl.Expression) (string, error) {
	val, diags := expr.Value(evalContext)
	if diags.HasErrors() {
		return "", fmt.Errorf("%w: %s", errDynamic, diags.Error())
	}
	if val.IsNull() || !val.IsWhollyKnown() || val.Type() != cty.String {
		return "", errDynamic
	}
	return val.AsString(), nil
}

// staticStrings evaluates expr to a known string or list of strings.
func staticStrings(expr hcl.Expression) ([]string, error) {
	val, diags := expr.Value(evalContext)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", errDynamic, diags.Error())
	}
	if val.IsNull() || !val.IsWhollyKnown() {
		return nil, errDynamic
	}
	if val.Type() == cty.String {
		return []string{val.AsString()}, nil
	}
	if !val.CanIterateElements() {
		return nil, errDynamic
	}
	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.IsNull() || elem.Type() != cty.String {
			return nil, errDynamic
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}

// documentTree converts the statement blocks of an aws_iam_policy_document
// data source into the decoded JSON policy grammar.
func documentTree(body *hclsyntax.Body) (map[string]any, error) {
	statements := []any{}
	for _, st := range body.Blocks {
		if st.Type != "statement" {
			continue
		}
		stmt, err := statementTree(st.Body)
		if err != nil {
			return nil, fmt.Errorf("statement at line %d: %w", st.DefRange().Start.Line, err)
		}
		statements = append(statements, stmt)
	}
	return map[string]any{"Statement": statements}, nil
}

func statementTree(body *hclsyntax.Body) (map[string]any, error) {
	stmt := map[string]any{"Effect": "Allow"}

	scalars := map[string]string{"sid": "Sid", "effect": "Effect"}
	for attr, key := range scalars {
		if a, ok := body.Attributes[attr]; ok {
			v, err := staticString(a.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", attr, err)
			}
			stmt[key] = v
		}
	}

	lists := map[string]string{"actions": "Action", "resources": "Resource"}
	for attr, key := range lists {
		if a, ok := body.Attributes[attr]; ok {
			v, err := staticStrings(a.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", attr, err)
			}
			stmt[key] = toAny(v)
		}
	}

	principal := map[string]any{}
	conditions := map[string]any{}
	for _, blk := range body.Blocks {
		switch blk.Type {
		case "principals":
			typ, ids, err := principalBlock(blk.Body)
			if err != nil {
				return nil, fmt.Errorf("principals: %w", err)
			}
			if typ == "*" {
				stmt["Principal"] = "*"
				continue
			}
			principal[typ] = appendAny(principal[typ], ids)
		case "condition":
			test, variable, values, err := conditionBlock(blk.Body)
			if err != nil {
				return nil, fmt.Errorf("condition: %w", err)
			}
			op, _ := conditions[test].(map[string]any)
			if op == nil {
				op = map[string]any{}
				conditions[test] = op
			}
			op[variable] = appendAny(op[variable], values)
		}
	}
	if _, wildcard := stmt["Principal"]; !wildcard && len(principal) > 0 {
		stmt["Principal"] = principal
	}
	if len(conditions) > 0 {
		stmt["Condition"] = conditions
	}
	return stmt, nil
}

func principalBlock(body *hclsyntax.Body) (string, []string, error) {
	typAttr, ok := body.Attributes["type"]
	if !ok {
		return "", nil, errors.New("missing type")
	}
	typ, err := staticString(typAttr.Expr)
	if err != nil {
		return "", nil, err
	}
	idsAttr, ok := body.Attributes["identifiers"]
	if !ok {
		return "", nil, errors.New("missing identifiers")
	}
	ids, err := staticStrings(idsAttr.Expr)
	if err != nil {
		return "", nil, err
	}
	return typ, ids, nil
}

func conditionBlock(body *hclsyntax.Body) (test, variable string, values []string, err error) {
	for name, dst := range map[string]*string{"test": &test, "variable": &variable} {
		a, ok := body.Attributes[name]
		if !ok {
			return "", "", nil, fmt.Errorf("missing %s", name)
		}
		if *dst, err = staticString(a.Expr); err != nil {
			return "", "", nil, err
		}
	}
	a, ok := body.Attributes["values"]
	if !ok {
		return "", "", nil, errors.New("missing values")
	}
	if values, err = staticStrings(a.Expr); err != nil {
		return "", "", nil, err
	}
	return test, variable, values, nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func appendAny(existing any, values []string) []any {
	list, _ := existing.([]any)
	return append(list, toAny(values)...)
}
