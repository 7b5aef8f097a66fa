// Package expr implements visibility.Evaluator with a small boolean
// expression language:
//
//	plan == "pro" && !(seats < 5) || data.beta
//
// Identifiers resolve against field values (dotted paths walk nested maps)
// or attached data via the `data.` prefix. Comparisons accept ==, !=, <, <=,
// > and >= against string, number, bool or null literals.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"text/scanner"

	"github.com/goliatone/go-formstate/pkg/visibility"
)

// Evaluator compiles each distinct rule once and caches the result.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]node
}

var _ visibility.Evaluator = (*Evaluator)(nil)

func New() *Evaluator {
	return &Evaluator{cache: make(map[string]node)}
}

// Compile parses rule without evaluating it so malformed rules surface at
// registration.
func (e *Evaluator) Compile(rule string) error {
	_, err := e.program(rule)
	return err
}

// Eval implements visibility.Evaluator. An empty rule is always visible.
func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	prog, err := e.program(rule)
	if err != nil {
		return false, err
	}
	if prog == nil {
		return true, nil
	}
	return prog.eval(ctx)
}

func (e *Evaluator) program(rule string) (node, error) {
	key := strings.TrimSpace(rule)
	if key == "" {
		return nil, nil
	}
	e.mu.RLock()
	prog, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}

	prog, err := parse(key)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[key] = prog
	e.mu.Unlock()
	return prog, nil
}

type node interface {
	eval(ctx visibility.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	return !ok, err
}

type truthyNode struct{ ident string }

func (n truthyNode) eval(ctx visibility.Context) (bool, error) {
	value, ok := lookup(ctx, n.ident)
	return ok && truthy(value), nil
}

type literal struct {
	kind  rune // scanner.String, scanner.Float, 't' (bool) or 'n' (null)
	text  string
	num   float64
	truth bool
}

type compareNode struct {
	ident string
	op    string
	lit   literal
}

func (n compareNode) eval(ctx visibility.Context) (bool, error) {
	value, present := lookup(ctx, n.ident)
	if !present {
		value = nil
	}

	switch n.lit.kind {
	case 'n':
		return equality(n.op, value == nil, true)
	case 't':
		got, _ := toBool(value)
		return equality(n.op, got, n.lit.truth)
	case scanner.Float:
		got, ok := toNumber(value)
		if !ok {
			got = 0
		}
		switch n.op {
		case "<":
			return got < n.lit.num, nil
		case "<=":
			return got <= n.lit.num, nil
		case ">":
			return got > n.lit.num, nil
		case ">=":
			return got >= n.lit.num, nil
		}
		return equality(n.op, got, n.lit.num)
	default:
		return equality(n.op, toString(value), n.lit.text)
	}
}

func equality[T comparable](op string, got, want T) (bool, error) {
	switch op {
	case "==":
		return got == want, nil
	case "!=":
		return got != want, nil
	default:
		return false, fmt.Errorf("visibility/expr: operator %q needs a number literal", op)
	}
}

type parser struct {
	toks []tok
	pos  int
}

type tok struct {
	kind rune
	text string
}

const (
	tokOp    rune = -100
	tokIdent rune = scanner.Ident
)

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		return nil, fmt.Errorf("visibility/expr: unexpected %q", p.toks[p.pos].text)
	}
	return n, nil
}

func lex(src string) ([]tok, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanFloats | scanner.ScanStrings | scanner.ScanRawStrings
	s.IsIdentRune = func(ch rune, i int) bool {
		return ch == '_' || ch == '.' || ch == '-' && i > 0 ||
			('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') ||
			('0' <= ch && ch <= '9' && i > 0)
	}
	var scanErr error
	s.Error = func(_ *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = fmt.Errorf("visibility/expr: %s", msg)
		}
	}

	var out []tok
	for r := s.Scan(); r != scanner.EOF; r = s.Scan() {
		text := s.TokenText()
		switch r {
		case scanner.Ident:
			out = append(out, tok{kind: tokIdent, text: text})
		case scanner.Int, scanner.Float:
			out = append(out, tok{kind: scanner.Float, text: text})
		case scanner.String, scanner.RawString:
			unquoted, err := strconv.Unquote(text)
			if err != nil {
				return nil, fmt.Errorf("visibility/expr: invalid string literal %s: %w", text, err)
			}
			out = append(out, tok{kind: scanner.String, text: unquoted})
		case '\'':
			var b strings.Builder
			closed := false
			for ch := s.Next(); ch != scanner.EOF; ch = s.Next() {
				if ch == '\'' {
					closed = true
					break
				}
				b.WriteRune(ch)
			}
			if !closed {
				return nil, errors.New("visibility/expr: unterminated string literal")
			}
			out = append(out, tok{kind: scanner.String, text: b.String()})
		case '(', ')':
			out = append(out, tok{kind: r, text: text})
		case '=', '!', '<', '>', '&', '|', '-':
			op, err := operator(&s, r)
			if err != nil {
				return nil, err
			}
			out = append(out, op)
		default:
			return nil, fmt.Errorf("visibility/expr: unexpected %q", text)
		}
		if scanErr != nil {
			return nil, scanErr
		}
	}
	return out, scanErr
}

func operator(s *scanner.Scanner, first rune) (tok, error) {
	next := s.Peek()
	switch first {
	case '=':
		if next != '=' {
			return tok{}, errors.New("visibility/expr: unexpected '='; use '=='")
		}
		s.Next()
		return tok{kind: tokOp, text: "=="}, nil
	case '!':
		if next == '=' {
			s.Next()
			return tok{kind: tokOp, text: "!="}, nil
		}
		return tok{kind: tokOp, text: "!"}, nil
	case '<', '>':
		if next == '=' {
			s.Next()
			return tok{kind: tokOp, text: string(first) + "="}, nil
		}
		return tok{kind: tokOp, text: string(first)}, nil
	case '&', '|':
		if next != first {
			return tok{}, fmt.Errorf("visibility/expr: unexpected %q; use %q", string(first), string(first)+string(first))
		}
		s.Next()
		return tok{kind: tokOp, text: string(first) + string(first)}, nil
	case '-':
		if r := s.Scan(); r != scanner.Int && r != scanner.Float {
			return tok{}, errors.New("visibility/expr: '-' must precede a number")
		}
		return tok{kind: scanner.Float, text: "-" + s.TokenText()}, nil
	}
	return tok{}, fmt.Errorf("visibility/expr: unexpected %q", string(first))
}

func (p *parser) peekOp(text string) bool {
	return p.pos < len(p.toks) && p.toks[p.pos].kind == tokOp && p.toks[p.pos].text == text
}

func (p *parser) accept(kind rune) (tok, bool) {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == kind {
		t := p.toks[p.pos]
		p.pos++
		return t, true
	}
	return tok{}, false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	for err == nil && p.peekOp("||") {
		p.pos++
		var right node
		if right, err = p.and(); err == nil {
			left = orNode{left: left, right: right}
		}
	}
	return left, err
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	for err == nil && p.peekOp("&&") {
		p.pos++
		var right node
		if right, err = p.unary(); err == nil {
			left = andNode{left: left, right: right}
		}
	}
	return left, err
}

func (p *parser) unary() (node, error) {
	if p.peekOp("!") {
		p.pos++
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if _, ok := p.accept('('); ok {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(')'); !ok {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := p.accept(tokIdent)
	if !ok {
		if p.pos >= len(p.toks) {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", p.toks[p.pos].text)
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.peekOp(op) {
			p.pos++
			lit, err := p.literal()
			if err != nil {
				return nil, err
			}
			if lit.kind != scanner.Float && op != "==" && op != "!=" {
				return nil, fmt.Errorf("visibility/expr: operator %q needs a number literal", op)
			}
			return compareNode{ident: ident.text, op: op, lit: lit}, nil
		}
	}
	return truthyNode{ident: ident.text}, nil
}

func (p *parser) literal() (literal, error) {
	if p.pos >= len(p.toks) {
		return literal{}, errors.New("visibility/expr: missing literal")
	}
	t := p.toks[p.pos]
	p.pos++
	switch t.kind {
	case scanner.String:
		return literal{kind: scanner.String, text: t.text}, nil
	case scanner.Float:
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return literal{}, fmt.Errorf("visibility/expr: invalid number %q", t.text)
		}
		return literal{kind: scanner.Float, num: n, text: t.text}, nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true", "false":
			return literal{kind: 't', truth: strings.EqualFold(t.text, "true")}, nil
		case "null", "nil":
			return literal{kind: 'n'}, nil
		}
		// Bare words compare as strings: plan == pro.
		return literal{kind: scanner.String, text: t.text}, nil
	default:
		return literal{}, fmt.Errorf("visibility/expr: expected literal, got %q", t.text)
	}
}
