package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBadExpression is returned for a license expression that does not parse.
var ErrBadExpression = errors.New("malformed license expression")

// Operators of a license expression.
const (
	OpKey  = ""
	OpAnd  = "AND"
	OpOr   = "OR"
	OpWith = "WITH"
)

// Expression is a parsed license expression: a key, or an operator over
// sub-expressions. WITH binds a license to an exception.
type Expression struct {
	Op   string
	Key  string
	Args []*Expression
}

// ParseExpression parses "mit", "gpl-2.0 WITH classpath-exception-2.0",
// "(apache-2.0 OR mit) AND bsd-new". Operators are case-insensitive;
// AND binds tighter than OR.
func ParseExpression(s string) (*Expression, error) {
	p := &exprParser{toks: lexExpression(s)}
	if len(p.toks) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadExpression)
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrBadExpression, p.toks[p.pos], s)
	}
	return e, nil
}

// Keys returns the distinct license keys referenced, sorted.
func (e *Expression) Keys() []string {
	seen := make(map[string]bool)
	var walk func(*Expression)
	walk = func(x *Expression) {
		if x.Op == OpKey {
			seen[x.Key] = true
			return
		}
		for _, a := range x.Args {
			walk(a)
		}
	}
	walk(e)
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the expression in normalized form.
func (e *Expression) String() string {
	if e.Op == OpKey {
		return e.Key
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		s := a.String()
		if a.Op != OpKey && a.Op != OpWith && a.Op != e.Op {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, " "+e.Op+" ")
}

// Rename returns a copy of e with every key replaced by f(key).
func (e *Expression) Rename(f func(key string) string) *Expression {
	if e.Op == OpKey {
		return &Expression{Op: OpKey, Key: f(e.Key)}
	}
	args := make([]*Expression, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.Rename(f)
	}
	return &Expression{Op: e.Op, Args: args}
}

// Combine joins expressions with AND, keeping the first of any duplicates.
// Nested ANDs are flattened. Returns nil when given nothing.
func Combine(exprs ...*Expression) *Expression {
	var args []*Expression
	seen := make(map[string]bool)
	add := func(x *Expression) {
		if s := x.String(); !seen[s] {
			seen[s] = true
			args = append(args, x)
		}
	}
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if e.Op == OpAnd {
			for _, a := range e.Args {
				add(a)
			}
			continue
		}
		add(e)
	}
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	}
	return &Expression{Op: OpAnd, Args: args}
}

func lexExpression(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type exprParser struct {
	toks []string
	pos  int
}

func (p *exprParser) peekOp(op string) bool {
	return p.pos < len(p.toks) && strings.EqualFold(p.toks[p.pos], op)
}

func (p *exprParser) parseOr() (*Expression, error) {
	return p.parseBinary(OpOr, p.parseAnd)
}

func (p *exprParser) parseAnd() (*Expression, error) {
	return p.parseBinary(OpAnd, p.parseWith)
}

func (p *exprParser) parseBinary(op string, next func() (*Expression, error)) (*Expression, error) {
	first, err := next()
	if err != nil {
		return nil, err
	}
	args := []*Expression{first}
	for p.peekOp(op) {
		p.pos++
		e, err := next()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if len(args) == 1 {
		return first, nil
	}
	return &Expression{Op: op, Args: args}, nil
}

func (p *exprParser) parseWith() (*Expression, error) {
	lic, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if !p.peekOp(OpWith) {
		return lic, nil
	}
	p.pos++
	exc, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if lic.Op != OpKey || exc.Op != OpKey {
		return nil, fmt.Errorf("%w: WITH needs a license key and an exception key", ErrBadExpression)
	}
	return &Expression{Op: OpWith, Args: []*Expression{lic, exc}}, nil
}

func (p *exprParser) parseAtom() (*Expression, error) {
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected end", ErrBadExpression)
	}
	tok := p.toks[p.pos]
	switch {
	case tok == "(":
		p.pos++
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.toks) || p.toks[p.pos] != ")" {
			return nil, fmt.Errorf("%w: missing )", ErrBadExpression)
		}
		p.pos++
		return e, nil
	case tok == ")", strings.EqualFold(tok, OpAnd), strings.EqualFold(tok, OpOr), strings.EqualFold(tok, OpWith):
		return nil, fmt.Errorf("%w: unexpected %q", ErrBadExpression, tok)
	default:
		p.pos++
		return &Expression{Op: OpKey, Key: strings.ToLower(tok)}, nil
	}
}
