package query

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Span is a byte range [Start, End) of the query text
type Span struct {
	Start int
	End   int
}

// Cover returns the smallest span containing s and o.
func (s Span) Cover(o Span) Span {
	if o.Start < s.Start {
		s.Start = o.Start
	}
	if o.End > s.End {
		s.End = o.End
	}
	return s
}

// Token represents a lexical token
type Token struct {
	Kind TokenKind
	Text string
	Span Span
}

func (t Token) String() string {
	if t.Text == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
}

// TokenKind is the type of token
type TokenKind int

const (
	TokWord TokenKind = iota
	TokQuoted
	TokFieldName
	TokColon
	TokOperator
	TokRangeOpen
	TokRangeSep
	TokRangeClose
	TokRegex
	TokBoolOp
	TokLParen
	TokRParen
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokWord:
		return "Word"
	case TokQuoted:
		return "QuotedString"
	case TokFieldName:
		return "FieldName"
	case TokColon:
		return "Colon"
	case TokOperator:
		return "Operator"
	case TokRangeOpen:
		return "RangeOpen"
	case TokRangeSep:
		return "RangeSep"
	case TokRangeClose:
		return "RangeClose"
	case TokRegex:
		return "RegexLiteral"
	case TokBoolOp:
		return "BoolOp"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// LexError reports an unterminated quoted string or regex literal.
// Offset is where the literal began.
type LexError struct {
	Kind   ErrorKind
	Offset int
}

func (e *LexError) Error() string {
	if e.Kind == ErrUnterminatedRegex {
		return fmt.Sprintf("unterminated regex at offset %d", e.Offset)
	}
	return fmt.Sprintf("unterminated string at offset %d", e.Offset)
}

type lexMode int

const (
	modeNormal lexMode = iota
	modeValue          // directly after field:
	modeRange          // inside [ ... ]
)

// Lexer tokenizes a query string. Offsets are in bytes.
type Lexer struct {
	input string
	pos   int
	mode  lexMode
	colon bool
}

// NewLexer creates a new lexer for the input string
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Lex tokenizes the entire input. The last token is always EOF.
func Lex(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}

	return tokens, nil
}

// Next returns the next token
func (l *Lexer) Next() (Token, error) {
	switch l.mode {
	case modeValue:
		return l.nextValue()
	case modeRange:
		return l.nextRange()
	}
	return l.nextNormal()
}

func (l *Lexer) nextNormal() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return l.eof(), nil
	}

	start := l.pos
	ch, _ := l.peek()

	switch {
	case ch == '(':
		return l.single(TokLParen), nil
	case ch == ')':
		return l.single(TokRParen), nil
	case isQuote(ch):
		return l.scanQuoted()
	case ch == 'r' && l.quoteAt(start+1):
		return l.scanRegex()
	}

	// Words run to whitespace or a paren. A leading identifier directly
	// followed by ':' is a field name.
	for l.pos < len(l.input) {
		c, size := l.peek()
		if unicode.IsSpace(c) || c == '(' || c == ')' {
			break
		}
		if c == ':' && l.pos > start && isIdent(l.input[start:l.pos]) {
			name := Token{Kind: TokFieldName, Text: l.input[start:l.pos], Span: Span{start, l.pos}}
			l.mode = modeValue
			l.colon = true
			return name, nil
		}
		l.pos += size
	}

	text := l.input[start:l.pos]
	switch text {
	case "AND", "OR", "NOT":
		return Token{Kind: TokBoolOp, Text: text, Span: Span{start, l.pos}}, nil
	}
	return Token{Kind: TokWord, Text: text, Span: Span{start, l.pos}}, nil
}

// nextValue lexes the part after field:. The colon itself is emitted
// first; afterwards an optional operator and then one value.
func (l *Lexer) nextValue() (Token, error) {
	if l.pos >= len(l.input) {
		l.mode = modeNormal
		return l.eof(), nil
	}

	start := l.pos
	ch, _ := l.peek()

	switch {
	case l.colon:
		l.colon = false
		return l.single(TokColon), nil
	case ch == '>' || ch == '<':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
		}
		return Token{Kind: TokOperator, Text: l.input[start:l.pos], Span: Span{start, l.pos}}, nil
	case ch == '=':
		return l.single(TokOperator), nil
	case ch == '[':
		l.mode = modeRange
		return l.single(TokRangeOpen), nil
	}

	l.mode = modeNormal
	switch {
	case unicode.IsSpace(ch) || ch == '(' || ch == ')':
		return l.nextNormal()
	case isQuote(ch):
		return l.scanQuoted()
	case ch == 'r' && l.quoteAt(start+1):
		return l.scanRegex()
	}

	// Values may contain ':' (times, URLs).
	for l.pos < len(l.input) {
		c, size := l.peek()
		if unicode.IsSpace(c) || c == '(' || c == ')' {
			break
		}
		l.pos += size
	}
	return Token{Kind: TokWord, Text: l.input[start:l.pos], Span: Span{start, l.pos}}, nil
}

func (l *Lexer) nextRange() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		l.mode = modeNormal
		return l.eof(), nil
	}

	start := l.pos
	ch, _ := l.peek()
	switch {
	case ch == ']':
		l.mode = modeNormal
		return l.single(TokRangeClose), nil
	case isQuote(ch):
		return l.scanQuoted()
	}

	for l.pos < len(l.input) {
		c, size := l.peek()
		if unicode.IsSpace(c) || c == ']' {
			break
		}
		l.pos += size
	}
	text := l.input[start:l.pos]
	if text == "to" || text == "TO" {
		return Token{Kind: TokRangeSep, Text: text, Span: Span{start, l.pos}}, nil
	}
	return Token{Kind: TokWord, Text: text, Span: Span{start, l.pos}}, nil
}

// scanQuoted reads '...' or "..." and returns the interior verbatim.
func (l *Lexer) scanQuoted() (Token, error) {
	start := l.pos
	quote := l.input[l.pos]
	l.pos++
	for l.pos < len(l.input) {
		if l.input[l.pos] == quote {
			l.pos++
			return Token{Kind: TokQuoted, Text: l.input[start+1 : l.pos-1], Span: Span{start, l.pos}}, nil
		}
		l.pos++
	}
	return Token{}, &LexError{Kind: ErrUnterminatedString, Offset: start}
}

// scanRegex reads r"..." or r'...'. A backslash keeps the next byte from
// closing the literal; nothing is unescaped.
func (l *Lexer) scanRegex() (Token, error) {
	start := l.pos
	quote := l.input[l.pos+1]
	l.pos += 2
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '\\':
			l.pos += 2
			continue
		case quote:
			l.pos++
			return Token{Kind: TokRegex, Text: l.input[start+2 : l.pos-1], Span: Span{start, l.pos}}, nil
		}
		l.pos++
	}
	return Token{}, &LexError{Kind: ErrUnterminatedRegex, Offset: start}
}

func (l *Lexer) single(kind TokenKind) Token {
	tok := Token{Kind: kind, Text: l.input[l.pos : l.pos+1], Span: Span{l.pos, l.pos + 1}}
	l.pos++
	return tok
}

func (l *Lexer) eof() Token {
	return Token{Kind: TokEOF, Span: Span{len(l.input), len(l.input)}}
}

func (l *Lexer) peek() (rune, int) {
	return utf8.DecodeRuneInString(l.input[l.pos:])
}

func (l *Lexer) quoteAt(i int) bool {
	return i < len(l.input) && isQuote(rune(l.input[i]))
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		c, size := l.peek()
		if !unicode.IsSpace(c) {
			return
		}
		l.pos += size
	}
}

func isQuote(ch rune) bool {
	return ch == '"' || ch == '\''
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_') {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}
