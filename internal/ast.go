package internal

import (
	"fmt"
	"strings"
)

// The AST the parser produces and the evaluator walks. Nodes are plain
// data; compiled method and block bodies are kept in the VM's code table
// and referenced from heap objects by index.

// An Expr is any expression node.
type Expr interface {
	exprRange() SourceRange
	dump(b *strings.Builder, indent int)
}

// A Stmt is one statement of a script, method, or block body. A statement
// is an expression, optionally marked as a non-local return (^ expr).
type Stmt struct {
	Expr   Expr
	Return bool
}

// A Script is a parsed source file: a sequence of statements evaluated
// against the lobby.
type Script struct {
	Stmts []Stmt
	Range SourceRange
}

// IntegerLit is an integer literal.
type IntegerLit struct {
	Value int64
	Rng   SourceRange
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Value float64
	Rng   SourceRange
}

// StringLit is a 'single-quoted' byte string literal.
type StringLit struct {
	Value string
	Rng   SourceRange
}

// SelfLit is the receiver of the current activation. The parser produces it
// for the identifier "self"; it resolves through the activation's self slot.
// Message sends with a nil receiver are implicit-receiver sends, which is
// how every other identifier resolves.
type SelfLit struct {
	Rng SourceRange
}

// UnaryMessage is selector sent to Receiver, or to the implicit receiver
// (the current activation) when Receiver is nil.
type UnaryMessage struct {
	Receiver Expr
	Selector string
	Rng      SourceRange
}

// BinaryMessage is an operator send with one argument.
type BinaryMessage struct {
	Receiver Expr
	Selector string
	Arg      Expr
	Rng      SourceRange
}

// KeywordMessage is a keyword send. Selector is canonical ("at:Put:");
// Receiver nil means the implicit receiver.
type KeywordMessage struct {
	Receiver Expr
	Selector string
	Args     []Expr
	Rng      SourceRange
}

// SlotDeclKind distinguishes the declaration forms inside (| ... |).
type SlotDeclKind int

const (
	// DeclMutable: name <- expr, or a bare name.
	DeclMutable SlotDeclKind = iota
	// DeclConstant: name = expr.
	DeclConstant
	// DeclParentMutable: name* <- expr.
	DeclParentMutable
	// DeclParentConstant: name* = expr.
	DeclParentConstant
	// DeclArgument: :name, in block literals.
	DeclArgument
)

// A SlotDecl is one declaration in an object or block literal. A
// declaration with argument names (a keyword or binary method slot) or
// whose initializer is an object literal containing code defines a method.
type SlotDecl struct {
	Name string
	Kind SlotDeclKind
	// ArgNames holds the parameter names of a keyword or binary method
	// slot declaration like "at: i Put: v = (...)".
	ArgNames []string
	Init     Expr
	Rng      SourceRange
}

// ObjectLit is (| decls | code). Evaluated standalone it creates a fresh
// slots object (running any code against it); as the initializer of a
// constant slot with arguments it compiles to a Method.
type ObjectLit struct {
	Decls []SlotDecl
	Code  []Stmt
	Rng   SourceRange
}

// BlockLit is [| :args. locals | code], a closure over the enclosing
// activation.
type BlockLit struct {
	Decls []SlotDecl
	Code  []Stmt
	Rng   SourceRange
}

func (e *IntegerLit) exprRange() SourceRange     { return e.Rng }
func (e *FloatLit) exprRange() SourceRange       { return e.Rng }
func (e *StringLit) exprRange() SourceRange      { return e.Rng }
func (e *SelfLit) exprRange() SourceRange        { return e.Rng }
func (e *UnaryMessage) exprRange() SourceRange   { return e.Rng }
func (e *BinaryMessage) exprRange() SourceRange  { return e.Rng }
func (e *KeywordMessage) exprRange() SourceRange { return e.Rng }
func (e *ObjectLit) exprRange() SourceRange      { return e.Rng }
func (e *BlockLit) exprRange() SourceRange       { return e.Rng }

// DumpAST renders a script for the --dump-ast flag.
func DumpAST(s *Script) string {
	b := &strings.Builder{}
	for _, st := range s.Stmts {
		dumpStmt(b, st, 0)
	}
	return b.String()
}

func dumpStmt(b *strings.Builder, st Stmt, indent int) {
	pad(b, indent)
	if st.Return {
		b.WriteString("return\n")
		st.Expr.dump(b, indent+1)
		return
	}
	b.WriteString("stmt\n")
	st.Expr.dump(b, indent+1)
}

func pad(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteString("  ")
	}
}

func (e *IntegerLit) dump(b *strings.Builder, n int) {
	pad(b, n)
	fmt.Fprintf(b, "integer %d\n", e.Value)
}

func (e *FloatLit) dump(b *strings.Builder, n int) {
	pad(b, n)
	fmt.Fprintf(b, "float %g\n", e.Value)
}

func (e *StringLit) dump(b *strings.Builder, n int) {
	pad(b, n)
	fmt.Fprintf(b, "string %q\n", e.Value)
}

func (e *SelfLit) dump(b *strings.Builder, n int) {
	pad(b, n)
	b.WriteString("self\n")
}

func (e *UnaryMessage) dump(b *strings.Builder, n int) {
	pad(b, n)
	fmt.Fprintf(b, "unary %q\n", e.Selector)
	dumpReceiver(b, e.Receiver, n+1)
}

func (e *BinaryMessage) dump(b *strings.Builder, n int) {
	pad(b, n)
	fmt.Fprintf(b, "binary %q\n", e.Selector)
	dumpReceiver(b, e.Receiver, n+1)
	e.Arg.dump(b, n+1)
}

func (e *KeywordMessage) dump(b *strings.Builder, n int) {
	pad(b, n)
	fmt.Fprintf(b, "keyword %q\n", e.Selector)
	dumpReceiver(b, e.Receiver, n+1)
	for _, a := range e.Args {
		a.dump(b, n+1)
	}
}

func (e *ObjectLit) dump(b *strings.Builder, n int) {
	pad(b, n)
	fmt.Fprintf(b, "object (%d slots, %d stmts)\n", len(e.Decls), len(e.Code))
	dumpDecls(b, e.Decls, e.Code, n+1)
}

func (e *BlockLit) dump(b *strings.Builder, n int) {
	pad(b, n)
	fmt.Fprintf(b, "block (%d slots, %d stmts)\n", len(e.Decls), len(e.Code))
	dumpDecls(b, e.Decls, e.Code, n+1)
}

func dumpDecls(b *strings.Builder, decls []SlotDecl, code []Stmt, n int) {
	for _, d := range decls {
		pad(b, n)
		fmt.Fprintf(b, "slot %q kind=%d args=%v\n", d.Name, d.Kind, d.ArgNames)
		if d.Init != nil {
			d.Init.dump(b, n+1)
		}
	}
	for _, st := range code {
		dumpStmt(b, st, n)
	}
}

func dumpReceiver(b *strings.Builder, r Expr, n int) {
	if r == nil {
		pad(b, n)
		b.WriteString("(implicit)\n")
		return
	}
	r.dump(b, n)
}
