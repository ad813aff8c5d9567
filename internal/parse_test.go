package internal

import (
	"strings"
	"testing"
)

func parseOne(t *testing.T, src string) Expr {
	t.Helper()
	s, err := Parse(strings.NewReader(src), "test")
	if err != nil {
		t.Fatalf("could not parse %q: %v", src, err)
	}
	if len(s.Stmts) != 1 {
		t.Fatalf("%q parsed to %d statements", src, len(s.Stmts))
	}
	return s.Stmts[0].Expr
}

func parseFail(t *testing.T, src string) {
	t.Helper()
	if _, err := Parse(strings.NewReader(src), "test"); err == nil {
		t.Errorf("%q parsed without error", src)
	}
}

func TestParseLiterals(t *testing.T) {
	if e := parseOne(t, "42").(*IntegerLit); e.Value != 42 {
		t.Errorf("integer literal = %d", e.Value)
	}
	if e := parseOne(t, "-7").(*IntegerLit); e.Value != -7 {
		t.Errorf("negative integer literal = %d", e.Value)
	}
	if e := parseOne(t, "2.5").(*FloatLit); e.Value != 2.5 {
		t.Errorf("float literal = %g", e.Value)
	}
	if e := parseOne(t, "-0.5").(*FloatLit); e.Value != -0.5 {
		t.Errorf("negative float literal = %g", e.Value)
	}
	if e := parseOne(t, `'a\nb'`).(*StringLit); e.Value != "a\nb" {
		t.Errorf("string literal = %q", e.Value)
	}
}

func TestParseUnaryChain(t *testing.T) {
	e := parseOne(t, "foo bar baz").(*UnaryMessage)
	if e.Selector != "baz" {
		t.Fatalf("outer selector = %q", e.Selector)
	}
	mid := e.Receiver.(*UnaryMessage)
	if mid.Selector != "bar" {
		t.Fatalf("middle selector = %q", mid.Selector)
	}
	inner := mid.Receiver.(*UnaryMessage)
	if inner.Selector != "foo" || inner.Receiver != nil {
		t.Errorf("innermost send = %q to %v, want implicit foo", inner.Selector, inner.Receiver)
	}
}

func TestParseSelfReceiver(t *testing.T) {
	e := parseOne(t, "self foo").(*UnaryMessage)
	if _, ok := e.Receiver.(*SelfLit); !ok {
		t.Errorf("receiver of self send is %T", e.Receiver)
	}
}

func TestParseBinaryLeftAssociative(t *testing.T) {
	e := parseOne(t, "1 + 2 * 3").(*BinaryMessage)
	if e.Selector != "*" {
		t.Fatalf("outer selector = %q", e.Selector)
	}
	lhs := e.Receiver.(*BinaryMessage)
	if lhs.Selector != "+" {
		t.Errorf("inner selector = %q; binary sends are not left-associative", lhs.Selector)
	}
}

func TestParseKeywordCanonicalSelector(t *testing.T) {
	e := parseOne(t, "a at: 1 Put: 2").(*KeywordMessage)
	if e.Selector != "at:Put:" {
		t.Errorf("selector = %q", e.Selector)
	}
	if len(e.Args) != 2 {
		t.Errorf("%d args", len(e.Args))
	}
	if r, ok := e.Receiver.(*UnaryMessage); !ok || r.Selector != "a" {
		t.Errorf("receiver = %#v", e.Receiver)
	}
}

func TestParseImplicitKeywordSend(t *testing.T) {
	e := parseOne(t, "resend: 5").(*KeywordMessage)
	if e.Receiver != nil || e.Selector != "resend:" {
		t.Errorf("implicit keyword send = %q to %v", e.Selector, e.Receiver)
	}
}

func TestParseKeywordBindsLoosest(t *testing.T) {
	e := parseOne(t, "a foo: 1 + 2").(*KeywordMessage)
	if _, ok := e.Args[0].(*BinaryMessage); !ok {
		t.Errorf("keyword argument is %T, want the whole binary send", e.Args[0])
	}
}

func TestParseLowercaseContinuationFails(t *testing.T) {
	parseFail(t, "a at: 1 put: 2")
}

func TestParseObjectLiteral(t *testing.T) {
	e := parseOne(t, "(| x <- 1. k = 2. p* = nil. at: i Put: v = ( v ) | x )").(*ObjectLit)
	if len(e.Decls) != 4 || len(e.Code) != 1 {
		t.Fatalf("object literal has %d decls, %d stmts", len(e.Decls), len(e.Code))
	}
	wants := []struct {
		name string
		kind SlotDeclKind
		args int
	}{
		{"x", DeclMutable, 0},
		{"k", DeclConstant, 0},
		{"p", DeclParentConstant, 0},
		{"at:Put:", DeclConstant, 2},
	}
	for i, w := range wants {
		d := e.Decls[i]
		if d.Name != w.name || d.Kind != w.kind || len(d.ArgNames) != w.args {
			t.Errorf("decl %d = %q kind %d args %v", i, d.Name, d.Kind, d.ArgNames)
		}
	}
	if _, ok := e.Decls[3].Init.(*ObjectLit); !ok {
		t.Errorf("method body is %T", e.Decls[3].Init)
	}
}

func TestParseEmptyObject(t *testing.T) {
	e := parseOne(t, "()").(*ObjectLit)
	if len(e.Decls) != 0 || len(e.Code) != 0 {
		t.Errorf("empty object literal has %d decls, %d stmts", len(e.Decls), len(e.Code))
	}
}

func TestParseParenExpression(t *testing.T) {
	e := parseOne(t, "(1 + 2) * 3").(*BinaryMessage)
	if e.Selector != "*" {
		t.Errorf("outer selector = %q; parentheses did not group", e.Selector)
	}
}

func TestParseBinaryMethodDecl(t *testing.T) {
	e := parseOne(t, "(| + n = ( n ) |)").(*ObjectLit)
	d := e.Decls[0]
	if d.Name != "+" || d.Kind != DeclConstant || len(d.ArgNames) != 1 || d.ArgNames[0] != "n" {
		t.Errorf("binary method decl = %+v", d)
	}
}

func TestParseBlockLiteral(t *testing.T) {
	e := parseOne(t, "[| :a. t | a + t ]").(*BlockLit)
	if len(e.Decls) != 2 || len(e.Code) != 1 {
		t.Fatalf("block literal has %d decls, %d stmts", len(e.Decls), len(e.Code))
	}
	if e.Decls[0].Kind != DeclArgument || e.Decls[0].Name != "a" {
		t.Errorf("first decl = %+v", e.Decls[0])
	}
	if e.Decls[1].Kind != DeclMutable {
		t.Errorf("second decl = %+v", e.Decls[1])
	}
}

func TestParseEmptyBlock(t *testing.T) {
	e := parseOne(t, "[]").(*BlockLit)
	if len(e.Decls) != 0 || len(e.Code) != 0 {
		t.Errorf("empty block has %d decls, %d stmts", len(e.Decls), len(e.Code))
	}
}

func TestParseReturnStatement(t *testing.T) {
	s, err := Parse(strings.NewReader("^ 3. 4"), "test")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Stmts) != 2 || !s.Stmts[0].Return || s.Stmts[1].Return {
		t.Errorf("statements = %+v", s.Stmts)
	}
}

func TestParseCommentsAndSeparators(t *testing.T) {
	s, err := Parse(strings.NewReader("\"a comment\" 1. . 2. \"trailing\""), "test")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Stmts) != 2 {
		t.Errorf("%d statements after comments and extra dots", len(s.Stmts))
	}
}

func TestParseStatementDotAfterInteger(t *testing.T) {
	// "1." must lex as the integer 1 and a separator, not a float.
	s, err := Parse(strings.NewReader("1. 2"), "test")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Stmts) != 2 {
		t.Fatalf("%d statements", len(s.Stmts))
	}
	if _, ok := s.Stmts[0].Expr.(*IntegerLit); !ok {
		t.Errorf("first statement is %T", s.Stmts[0].Expr)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"'unterminated",
		"(1 + 2",
		"(| x <- |)",
		"[| :a",
		"@",
		"(| at: = ( 1 ) |)",
	}
	for _, src := range bad {
		parseFail(t, src)
	}
}

func TestParseUnaryMethodBodyIsObject(t *testing.T) {
	e := parseOne(t, "(| x <- 1. double = ( x * 2 ) |)").(*ObjectLit)
	d := e.Decls[1]
	if d.Kind != DeclConstant {
		t.Fatalf("decl kind = %d", d.Kind)
	}
	body, ok := d.Init.(*ObjectLit)
	if !ok {
		t.Fatalf("initializer is %T, want an object body", d.Init)
	}
	if len(body.Code) != 1 {
		t.Errorf("body has %d statements", len(body.Code))
	}
}

func TestParseMethodBodyWithLocals(t *testing.T) {
	e := parseOne(t, "(| sum: n = ( | t <- 0 | t: t + n. t ) |)").(*ObjectLit)
	body := e.Decls[0].Init.(*ObjectLit)
	if len(body.Decls) != 1 || body.Decls[0].Name != "t" || body.Decls[0].Kind != DeclMutable {
		t.Fatalf("body decls = %+v", body.Decls)
	}
	if len(body.Code) != 2 {
		t.Errorf("body has %d statements", len(body.Code))
	}
}

func TestDumpAST(t *testing.T) {
	s, err := Parse(strings.NewReader("3 + 4"), "test")
	if err != nil {
		t.Fatal(err)
	}
	got := DumpAST(s)
	want := "stmt\n  binary \"+\"\n    integer 3\n    integer 4\n"
	if got != want {
		t.Errorf("DumpAST = %q, want %q", got, want)
	}
}
