// Package rules gives github.com/google/cel-go the job spec.md §1 leaves
// implicit: a declarative expression engine for Agent B's structural-risk
// score over the three scanners' summaries. The package also holds Agent
// D's priority-threshold routing (FilterByPriority), which is a plain Go
// comparison, not a CEL expression. The teacher's go.mod already
// declares cel-go but no teacher source file imports it.
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// ScanFeatures is the structural summary Agent B's triage node extracts
// from pdfid/pdf-parser/peepdf output before handing the PDF to the LLM
// for a structured decision. Field names are the CEL variable names the
// risk expression evaluates over.
type ScanFeatures struct {
	HasJavaScript     bool
	HasOpenAction     bool
	HasLaunchAction   bool
	HasEmbeddedFile   bool
	HasAcroForm       bool
	ObjectCount       int
	SuspiciousObjects int
}

func (f ScanFeatures) asActivation() map[string]any {
	return map[string]any{
		"has_javascript":     f.HasJavaScript,
		"has_openaction":     f.HasOpenAction,
		"has_launch_action":  f.HasLaunchAction,
		"has_embedded_file":  f.HasEmbeddedFile,
		"has_acroform":       f.HasAcroForm,
		"object_count":       int64(f.ObjectCount),
		"suspicious_objects": int64(f.SuspiciousObjects),
	}
}

// DefaultRiskExpression scores 0.0 (no structural red flags) to 1.0
// (every red flag present). It is a hint fed alongside the scanner
// summaries into the triage LLM call, not a standalone verdict — spec.md
// §4.5 requires the decision itself to come from a structured LLM call.
const DefaultRiskExpression = `
	(has_javascript ? 0.25 : 0.0) +
	(has_openaction && has_launch_action ? 0.35 : 0.0) +
	(has_embedded_file ? 0.2 : 0.0) +
	(has_acroform ? 0.1 : 0.0) +
	(suspicious_objects > 0 ? 0.1 : 0.0)
`

// Program is a compiled CEL expression over ScanFeatures, reusable across
// every PDF a run triages without recompiling.
type Program struct {
	env *cel.Env
	prg cel.Program
}

// NewRiskProgram compiles expr (typically DefaultRiskExpression) against
// the declared ScanFeatures variables.
func NewRiskProgram(expr string) (*Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("has_javascript", cel.BoolType),
		cel.Variable("has_openaction", cel.BoolType),
		cel.Variable("has_launch_action", cel.BoolType),
		cel.Variable("has_embedded_file", cel.BoolType),
		cel.Variable("has_acroform", cel.BoolType),
		cel.Variable("object_count", cel.IntType),
		cel.Variable("suspicious_objects", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("rules: building CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rules: compiling risk expression: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rules: building CEL program: %w", err)
	}

	return &Program{env: env, prg: prg}, nil
}

// Score evaluates the compiled expression over features and returns a
// risk score. Callers should clamp expectations to [0, 1] but the
// expression is free to exceed that range; it is an LLM hint, not a gate.
func (p *Program) Score(features ScanFeatures) (float64, error) {
	out, _, err := p.prg.Eval(features.asActivation())
	if err != nil {
		return 0, fmt.Errorf("rules: evaluating risk expression: %w", err)
	}
	score, ok := out.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("rules: risk expression did not evaluate to a double, got %T", out.Value())
	}
	return score, nil
}
