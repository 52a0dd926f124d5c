package query

import (
	"strings"
	"time"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
)

// Options configures parsing
type Options struct {
	// Now anchors relative dates. It is never read from the clock.
	Now    time.Time
	Limits Limits
}

// ParseString lexes and parses input.
func ParseString(input string, reg *fields.Registry, opts Options) (Node, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	return Parse(tokens, reg, opts)
}

// Parse builds an AST from tokens, resolving and coercing every field
// term against reg. Any error aborts the whole parse.
func Parse(tokens []Token, reg *fields.Registry, opts Options) (Node, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != TokEOF {
		end := 0
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].Span.End
		}
		tokens = append(tokens, Token{Kind: TokEOF, Span: Span{end, end}})
	}
	if tokens[0].Kind == TokEOF {
		return nil, &ParseError{Kind: ErrEmptyQuery, Span: tokens[0].Span}
	}
	if err := checkParens(tokens); err != nil {
		return nil, err
	}

	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	p := &parser{tokens: tokens, reg: reg, now: opts.Now, limits: limits}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.match(TokEOF) {
		return nil, p.unexpected()
	}
	return node, nil
}

// checkParens reports the first unbalanced parenthesis before any
// grammar work so the error points at the paren itself.
func checkParens(tokens []Token) error {
	var open []Span
	for _, tok := range tokens {
		switch tok.Kind {
		case TokLParen:
			open = append(open, tok.Span)
		case TokRParen:
			if len(open) == 0 {
				return &ParseError{Kind: ErrUnmatchedParen, Span: tok.Span, Token: ")"}
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return &ParseError{Kind: ErrUnmatchedParen, Span: open[len(open)-1], Token: "("}
	}
	return nil
}

type parser struct {
	tokens []Token
	pos    int
	reg    *fields.Registry
	now    time.Time
	limits Limits
	depth  int
	terms  int
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.matchBool("OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for {
		if p.matchBool("AND") {
			p.advance()
		} else if !p.startsOperand() {
			break
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if !p.matchBool("NOT") {
		return p.parseAtom()
	}
	tok := p.advance()
	if err := p.enter(tok); err != nil {
		return nil, err
	}
	defer p.leave()

	inner, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return Not{Inner: inner}, nil
}

func (p *parser) parseAtom() (Node, error) {
	switch p.current().Kind {
	case TokLParen:
		tok := p.advance()
		if err := p.enter(tok); err != nil {
			return nil, err
		}
		defer p.leave()

		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.match(TokRParen) {
			return nil, p.unexpected()
		}
		p.advance()
		return node, nil

	case TokFieldName:
		return p.parseFieldTerm()

	case TokWord, TokQuoted:
		return p.parseFreeText()
	}
	return nil, p.unexpected()
}

// parseFreeText folds consecutive bare words and quoted strings into one
// FreeText node. Quoted strings contribute each of their words.
func (p *parser) parseFreeText() (Node, error) {
	first := p.current()
	span := first.Span
	var words []string
	for p.match(TokWord) || p.match(TokQuoted) {
		tok := p.advance()
		span = span.Cover(tok.Span)
		if tok.Kind == TokQuoted {
			words = append(words, strings.Fields(tok.Text)...)
		} else {
			words = append(words, tok.Text)
		}
	}
	if len(words) == 0 {
		return nil, &ParseError{Kind: ErrEmptyTerm, Span: span, Token: first.Text}
	}
	if err := p.countTerm(span); err != nil {
		return nil, err
	}
	return FreeText{Words: words}, nil
}

func (p *parser) parseFieldTerm() (Node, error) {
	name := p.advance()
	spec, ok := p.reg.Resolve(name.Text)
	if !ok {
		return nil, &ParseError{Kind: ErrUnknownField, Span: name.Span, Field: name.Text, Token: name.Text}
	}
	colon := p.advance()
	term := name.Span.Cover(colon.Span)

	var (
		op    fields.Operator
		value fields.Value
		err   error
	)
	switch p.current().Kind {
	case TokOperator:
		opTok := p.advance()
		term = term.Cover(opTok.Span)
		op, _ = spec.OperatorFor(opTok.Text)
		if !p.match(TokWord) && !p.match(TokQuoted) {
			return nil, &ParseError{Kind: ErrEmptyTerm, Span: term, Field: spec.Name, Token: opTok.Text}
		}
		raw, span := p.scalar(spec)
		term = term.Cover(span)
		if !spec.Allows(op) {
			return nil, mismatch(spec, op, term)
		}
		value, err = p.reg.Coerce(spec, raw, op, p.now)
		if err != nil {
			return nil, &ParseError{Kind: ErrCoercion, Span: span, Field: spec.Name, Token: raw, Cause: err}
		}

	case TokRangeOpen:
		op = fields.InRange
		lo, hi, span, rerr := p.parseRange(spec)
		if rerr != nil {
			return nil, rerr
		}
		term = term.Cover(span)
		if !spec.Allows(op) {
			return nil, mismatch(spec, op, term)
		}
		value, err = p.reg.CoerceRange(spec, lo, hi, p.now)
		if err != nil {
			return nil, &ParseError{Kind: ErrCoercion, Span: span, Field: spec.Name, Token: lo + " to " + hi, Cause: err}
		}

	case TokRegex:
		tok := p.advance()
		term = term.Cover(tok.Span)
		op = fields.MatchesRegex
		if !spec.Allows(op) {
			return nil, mismatch(spec, op, term)
		}
		value, err = p.reg.Coerce(spec, tok.Text, op, p.now)
		if err != nil {
			return nil, &ParseError{Kind: ErrCoercion, Span: tok.Span, Field: spec.Name, Token: tok.Text, Cause: err}
		}

	case TokWord, TokQuoted:
		op = spec.DefaultOp()
		raw, span := p.scalar(spec)
		term = term.Cover(span)
		value, err = p.reg.Coerce(spec, raw, op, p.now)
		if err != nil {
			return nil, &ParseError{Kind: ErrCoercion, Span: span, Field: spec.Name, Token: raw, Cause: err}
		}

	default:
		return nil, &ParseError{Kind: ErrEmptyTerm, Span: term, Field: spec.Name, Token: name.Text}
	}

	if err := p.countTerm(term); err != nil {
		return nil, err
	}
	if op == fields.HasAttribute {
		return Exists{Field: spec, Attribute: value.Str}, nil
	}
	return FieldMatch{Field: spec, Op: op, Value: value}, nil
}

// scalar consumes one value token. For timestamp fields the unquoted
// phrases "N unit ago" and "last month|year" are taken whole.
func (p *parser) scalar(spec *fields.FieldSpec) (string, Span) {
	tok := p.advance()
	if spec.Type != fields.Timestamp || tok.Kind != TokWord {
		return tok.Text, tok.Span
	}
	unit, ago := p.peek(0), p.peek(1)
	if strings.EqualFold(tok.Text, "last") && unit.Kind == TokWord &&
		(strings.EqualFold(unit.Text, "month") || strings.EqualFold(unit.Text, "year")) {
		p.advance()
		return tok.Text + " " + unit.Text, tok.Span.Cover(unit.Span)
	}
	if unit.Kind == TokWord && ago.Kind == TokWord &&
		isDigits(tok.Text) && fields.IsRelativeUnit(unit.Text) && strings.EqualFold(ago.Text, "ago") {
		p.advance()
		p.advance()
		return tok.Text + " " + unit.Text + " " + ago.Text, tok.Span.Cover(ago.Span)
	}
	return tok.Text, tok.Span
}

// parseRange reads [A to B]. Each bound may span several words, which
// are joined with single spaces.
func (p *parser) parseRange(spec *fields.FieldSpec) (string, string, Span, error) {
	open := p.advance()
	span := open.Span

	bound := func(stop TokenKind) (string, error) {
		var parts []string
		for p.match(TokWord) || p.match(TokQuoted) {
			tok := p.advance()
			span = span.Cover(tok.Span)
			parts = append(parts, tok.Text)
		}
		if len(parts) == 0 || !p.match(stop) {
			span = span.Cover(p.current().Span)
			return "", &ParseError{Kind: ErrMalformedRange, Span: span, Field: spec.Name, Token: p.current().Text}
		}
		span = span.Cover(p.advance().Span)
		return strings.Join(parts, " "), nil
	}

	lo, err := bound(TokRangeSep)
	if err != nil {
		return "", "", span, err
	}
	hi, err := bound(TokRangeClose)
	if err != nil {
		return "", "", span, err
	}
	return lo, hi, span, nil
}

func mismatch(spec *fields.FieldSpec, op fields.Operator, span Span) error {
	return &ParseError{Kind: ErrOperatorMismatch, Span: span, Field: spec.Name, Token: op.String()}
}

func (p *parser) enter(tok Token) error {
	p.depth++
	if p.depth > p.limits.MaxDepth {
		return &ParseError{Kind: ErrTooComplex, Span: tok.Span, Token: tok.Text}
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) countTerm(span Span) error {
	p.terms++
	if p.terms > p.limits.MaxTerms {
		return &ParseError{Kind: ErrTooComplex, Span: span}
	}
	return nil
}

func (p *parser) unexpected() error {
	tok := p.current()
	return &ParseError{Kind: ErrUnexpectedToken, Span: tok.Span, Token: tok.Text}
}

// startsOperand reports whether the current token can begin an operand
// of an implicit conjunction.
func (p *parser) startsOperand() bool {
	switch p.current().Kind {
	case TokLParen, TokFieldName, TokWord, TokQuoted:
		return true
	}
	return p.matchBool("NOT")
}

func (p *parser) current() Token {
	return p.peek(0)
}

// peek returns the token offset positions ahead, clamped to EOF.
func (p *parser) peek(offset int) Token {
	pos := p.pos + offset
	if pos < len(p.tokens) {
		return p.tokens[pos]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}

func (p *parser) matchBool(word string) bool {
	tok := p.current()
	return tok.Kind == TokBoolOp && tok.Text == word
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
