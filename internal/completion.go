package internal

import "fmt"

// A SourceRange locates a syntactic element for diagnostics.
type SourceRange struct {
	Label string // file name or "<stdin>"
	Line  int
	Col   int
}

func (r SourceRange) String() string {
	return fmt.Sprintf("%s:%d:%d", r.Label, r.Line, r.Col)
}

// CompletionKind classifies the result of evaluating an expression.
type CompletionKind int

const (
	// NormalCompletion carries an ordinary result value.
	NormalCompletion CompletionKind = iota
	// ErrorCompletion carries a runtime error. Primitives surface type
	// mismatches, bounds violations and heap exhaustion this way; the
	// evaluator may hand the error to a failure handler block.
	ErrorCompletion
	// NonlocalCompletion unwinds to a target method activation, carrying
	// the value a ^-return produced.
	NonlocalCompletion
)

// A Completion is the result of evaluating an expression: a normal value, a
// runtime error, or a non-local return in flight.
type Completion struct {
	Kind CompletionKind
	// Value is the result (normal) or the returned value (non-local).
	Value Value
	// Message and Range describe a runtime error.
	Message string
	Range   SourceRange
	// Target is the activation reference a non-local return unwinds to.
	Target Value
}

// Normal wraps a value in a normal completion.
func Normal(v Value) Completion {
	return Completion{Kind: NormalCompletion, Value: v}
}

// Failf builds a runtime-error completion.
func Failf(rng SourceRange, format string, args ...interface{}) Completion {
	return Completion{Kind: ErrorCompletion, Message: fmt.Sprintf(format, args...), Range: rng}
}

// NonlocalReturn builds a completion unwinding to target with value v.
func NonlocalReturn(target, v Value) Completion {
	return Completion{Kind: NonlocalCompletion, Value: v, Target: target}
}

// IsError reports whether the completion is a runtime error.
func (c Completion) IsError() bool { return c.Kind == ErrorCompletion }
