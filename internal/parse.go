package internal

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// A ParseError reports malformed source with its position.
type ParseError struct {
	Message string
	Range   SourceRange
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Range, e.Message)
}

// Parse converts Self source into a script AST. label names the source in
// diagnostics.
func Parse(source io.Reader, label string) (*Script, error) {
	src := bufio.NewReader(source)
	tokens := make(chan token)
	go lex(src, tokens)
	p := &parser{label: label}
	for t := range tokens {
		if t.Kind == badToken {
			err := t.Err
			if err == nil {
				err = fmt.Errorf("bad token %q", t.Value)
			}
			return nil, &ParseError{Message: err.Error(), Range: p.rangeOf(t)}
		}
		p.toks = append(p.toks, t)
	}
	if len(p.toks) == 0 || p.toks[len(p.toks)-1].Kind != eofToken {
		p.toks = append(p.toks, token{Kind: eofToken})
	}
	stmts, err := p.parseStmts(eofToken)
	if err != nil {
		return nil, err
	}
	return &Script{Stmts: stmts, Range: SourceRange{Label: label, Line: 1, Col: 1}}, nil
}

type parser struct {
	toks  []token
	pos   int
	label string
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) rangeOf(t token) SourceRange {
	return SourceRange{Label: p.label, Line: t.Line, Col: t.Col}
}

func (p *parser) fail(t token, format string, args ...interface{}) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Range: p.rangeOf(t)}
}

// parseStmts parses dot-separated statements until the closing token kind,
// which is left unconsumed.
func (p *parser) parseStmts(until tokenKind) ([]Stmt, error) {
	var stmts []Stmt
	for {
		for p.peek().Kind == dotToken {
			p.next()
		}
		if p.peek().Kind == until {
			return stmts, nil
		}
		st := Stmt{}
		if p.peek().Kind == caretToken {
			p.next()
			st.Return = true
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.Expr = e
		stmts = append(stmts, st)
		switch p.peek().Kind {
		case dotToken:
			p.next()
		case until:
			return stmts, nil
		default:
			return nil, p.fail(p.peek(), "expected statement separator, got %q", p.peek().Value)
		}
	}
}

// parseExpr parses a full expression: keyword precedence on top of binary
// on top of unary.
func (p *parser) parseExpr() (Expr, error) {
	var recv Expr
	var err error
	if p.peek().Kind == keywordToken {
		// Implicit-receiver keyword send.
		return p.parseKeywordSend(nil)
	}
	recv, err = p.parseBinary()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == keywordToken {
		return p.parseKeywordSend(recv)
	}
	return recv, nil
}

// parseKeywordSend parses a keyword message. The first keyword part is
// lowercase; continuation parts must begin with an uppercase letter, which
// is what delimits nested keyword sends in Self.
func (p *parser) parseKeywordSend(recv Expr) (Expr, error) {
	first := p.next()
	selector := first.Value
	var args []Expr
	arg, err := p.parseBinary()
	if err != nil {
		return nil, err
	}
	args = append(args, arg)
	for p.peek().Kind == keywordToken && startsUpper(p.peek().Value) {
		t := p.next()
		selector += t.Value
		arg, err := p.parseBinary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if p.peek().Kind == keywordToken {
		return nil, p.fail(p.peek(), "keyword continuation %q must begin with an uppercase letter", p.peek().Value)
	}
	return &KeywordMessage{Receiver: recv, Selector: selector, Args: args, Rng: p.rangeOf(first)}, nil
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r) || r == '_'
}

// parseBinary parses left-associative binary sends.
func (p *parser) parseBinary() (Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == operatorToken {
		op := p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = &BinaryMessage{Receiver: lhs, Selector: op.Value, Arg: rhs, Rng: p.rangeOf(op)}
	}
	return lhs, nil
}

// parseUnary parses a primary followed by a chain of unary selectors. A
// leading identifier is an implicit-receiver unary send.
func (p *parser) parseUnary() (Expr, error) {
	var recv Expr
	if t := p.peek(); t.Kind == identToken {
		p.next()
		if t.Value == "self" {
			recv = &SelfLit{Rng: p.rangeOf(t)}
		} else {
			recv = &UnaryMessage{Selector: t.Value, Rng: p.rangeOf(t)}
		}
	} else {
		e, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		recv = e
	}
	for p.peek().Kind == identToken {
		t := p.next()
		recv = &UnaryMessage{Receiver: recv, Selector: t.Value, Rng: p.rangeOf(t)}
	}
	return recv, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.Kind {
	case integerToken:
		p.next()
		v, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, p.fail(t, "bad integer literal %q", t.Value)
		}
		return &IntegerLit{Value: v, Rng: p.rangeOf(t)}, nil
	case floatToken:
		p.next()
		v, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, p.fail(t, "bad float literal %q", t.Value)
		}
		return &FloatLit{Value: v, Rng: p.rangeOf(t)}, nil
	case stringToken:
		p.next()
		return &StringLit{Value: t.Value, Rng: p.rangeOf(t)}, nil
	case openToken:
		return p.parseParenOrObject()
	case openBlockToken:
		return p.parseBlock()
	case operatorToken:
		// A leading minus binds to a numeric literal.
		if t.Value == "-" {
			p.next()
			n := p.peek()
			switch n.Kind {
			case integerToken:
				e, err := p.parsePrimary()
				if err != nil {
					return nil, err
				}
				e.(*IntegerLit).Value = -e.(*IntegerLit).Value
				return e, nil
			case floatToken:
				e, err := p.parsePrimary()
				if err != nil {
					return nil, err
				}
				e.(*FloatLit).Value = -e.(*FloatLit).Value
				return e, nil
			}
		}
	}
	return nil, p.fail(t, "unexpected %q", t.Value)
}

// parseParenOrObject handles '(': either a parenthesized expression or an
// object literal '(|' decls '|' code ')'.
func (p *parser) parseParenOrObject() (Expr, error) {
	open := p.next()
	if p.peek().Kind == closeToken {
		p.next()
		return &ObjectLit{Rng: p.rangeOf(open)}, nil
	}
	if p.peek().Kind == barToken {
		p.next()
		decls, err := p.parseDecls()
		if err != nil {
			return nil, err
		}
		code, err := p.parseStmts(closeToken)
		if err != nil {
			return nil, err
		}
		p.next() // ')'
		return &ObjectLit{Decls: decls, Code: code, Rng: p.rangeOf(open)}, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != closeToken {
		return nil, p.fail(p.peek(), "expected ), got %q", p.peek().Value)
	}
	p.next()
	return e, nil
}

// parseBlock handles '[': a block literal with optional slot list.
func (p *parser) parseBlock() (Expr, error) {
	open := p.next()
	var decls []SlotDecl
	if p.peek().Kind == barToken {
		p.next()
		d, err := p.parseDecls()
		if err != nil {
			return nil, err
		}
		decls = d
	}
	code, err := p.parseStmts(closeBlockToken)
	if err != nil {
		return nil, err
	}
	p.next() // ']'
	return &BlockLit{Decls: decls, Code: code, Rng: p.rangeOf(open)}, nil
}

// parseDecls parses the slot list between bars. The closing bar is
// consumed.
func (p *parser) parseDecls() ([]SlotDecl, error) {
	var decls []SlotDecl
	for {
		for p.peek().Kind == dotToken {
			p.next()
		}
		if p.peek().Kind == barToken {
			p.next()
			return decls, nil
		}
		d, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
		switch p.peek().Kind {
		case dotToken:
			p.next()
		case barToken:
		default:
			return nil, p.fail(p.peek(), "expected . or | after slot, got %q", p.peek().Value)
		}
	}
}

func (p *parser) parseDecl() (SlotDecl, error) {
	t := p.peek()
	switch t.Kind {
	case argToken:
		p.next()
		return SlotDecl{Name: t.Value, Kind: DeclArgument, Rng: p.rangeOf(t)}, nil
	case identToken:
		p.next()
		d := SlotDecl{Name: t.Value, Kind: DeclMutable, Rng: p.rangeOf(t)}
		parent := false
		if n := len(d.Name); n > 0 && d.Name[n-1] == '*' {
			parent = true
			d.Name = d.Name[:n-1]
			d.Kind = DeclParentMutable
		}
		switch op := p.peek(); {
		case op.Kind == operatorToken && op.Value == "=":
			p.next()
			// A parenthesized initializer of a constant slot is an object
			// body, so that "double = ( x * 2 )" declares a method rather
			// than evaluating x * 2 at creation.
			var init Expr
			var err error
			if p.peek().Kind == openToken {
				init, err = p.parseObjectBody()
			} else {
				init, err = p.parseExpr()
			}
			if err != nil {
				return SlotDecl{}, err
			}
			d.Init = init
			if parent {
				d.Kind = DeclParentConstant
			} else {
				d.Kind = DeclConstant
			}
		case op.Kind == operatorToken && op.Value == "<-":
			p.next()
			init, err := p.parseExpr()
			if err != nil {
				return SlotDecl{}, err
			}
			d.Init = init
		}
		return d, nil
	case keywordToken:
		return p.parseMethodDecl()
	case operatorToken:
		// Binary method slot: op arg = (body).
		p.next()
		argT := p.peek()
		if argT.Kind != identToken {
			return SlotDecl{}, p.fail(argT, "expected parameter name after %q", t.Value)
		}
		p.next()
		body, err := p.parseMethodBody(t)
		if err != nil {
			return SlotDecl{}, err
		}
		return SlotDecl{Name: t.Value, Kind: DeclConstant, ArgNames: []string{argT.Value}, Init: body, Rng: p.rangeOf(t)}, nil
	}
	return SlotDecl{}, p.fail(t, "expected slot declaration, got %q", t.Value)
}

// parseMethodDecl parses a keyword method slot like "at: i Put: v = (...)".
func (p *parser) parseMethodDecl() (SlotDecl, error) {
	first := p.next()
	selector := first.Value
	var argNames []string
	for {
		argT := p.peek()
		if argT.Kind != identToken {
			return SlotDecl{}, p.fail(argT, "expected parameter name after %q", selector)
		}
		p.next()
		argNames = append(argNames, argT.Value)
		if p.peek().Kind == keywordToken && startsUpper(p.peek().Value) {
			selector += p.next().Value
			continue
		}
		break
	}
	body, err := p.parseMethodBody(first)
	if err != nil {
		return SlotDecl{}, err
	}
	return SlotDecl{Name: selector, Kind: DeclConstant, ArgNames: argNames, Init: body, Rng: p.rangeOf(first)}, nil
}

// parseMethodBody expects "= ( ... )" and returns the object literal.
func (p *parser) parseMethodBody(at token) (Expr, error) {
	if op := p.peek(); op.Kind != operatorToken || op.Value != "=" {
		return nil, p.fail(op, "expected = before method body of %q", at.Value)
	}
	p.next()
	if p.peek().Kind != openToken {
		return nil, p.fail(p.peek(), "method body of %q must be parenthesized", at.Value)
	}
	return p.parseObjectBody()
}

// parseObjectBody parses "( |decls| code )" as an object literal. This is
// the form the initializer of a constant slot takes: any parenthesized
// initializer is a body to run on sends, not an expression to evaluate at
// creation.
func (p *parser) parseObjectBody() (*ObjectLit, error) {
	open := p.next() // '('
	if p.peek().Kind == closeToken {
		p.next()
		return &ObjectLit{Rng: p.rangeOf(open)}, nil
	}
	var decls []SlotDecl
	if p.peek().Kind == barToken {
		p.next()
		d, err := p.parseDecls()
		if err != nil {
			return nil, err
		}
		decls = d
	}
	code, err := p.parseStmts(closeToken)
	if err != nil {
		return nil, err
	}
	p.next() // ')'
	return &ObjectLit{Decls: decls, Code: code, Rng: p.rangeOf(open)}, nil
}
