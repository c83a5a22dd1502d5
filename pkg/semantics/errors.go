package semantics

import "fmt"

// Stage identifies which part of the engine raised an EngineError.
type Stage string

const (
	StageMatch    Stage = "match"
	StageExprEval Stage = "expr-eval"
	StageMFEval   Stage = "mf-eval"
	StageParse    Stage = "parse"
	StageInSpace  Stage = "in-space"
)

// EngineError carries the stage that raised it, the offending value's
// print form (when there is one), and a message. Structural errors raised
// while matching, evaluating, parsing or checking membership (undefined
// space, unbound RHS variable, unknown meta-function...) are reported this
// way; NewLanguage's validation errors and the budget errors of ApplyStar
// and ApplyStarMemo are plain errors instead. Match failures are never errors (they return
// ok=false instead).
type EngineError struct {
	Stage   Stage
	Value   string
	Message string
}

func (e *EngineError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s (value: %s)", e.Stage, e.Message, e.Value)
}

func newError(stage Stage, value DPattern, format string, args ...any) *EngineError {
	v := ""
	if value != nil {
		v = value.String()
	}
	return &EngineError{Stage: stage, Value: v, Message: fmt.Sprintf(format, args...)}
}
