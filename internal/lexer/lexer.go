package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"spl/internal/diag"
)

type Lexer struct {
	file   string
	src    string
	pos    int
	line   int
	col    int
	peeked *Token
}

func New(file, src string) *Lexer {
	return &Lexer{file: file, src: src, line: 1, col: 1}
}

// Tokenize runs the lexer to completion and returns the full token sequence
// terminated by an EOF token.
func Tokenize(file, src string) ([]Token, error) {
	l := New(file, src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Next() (Token, error) {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok, nil
	}
	l.skipSpace()
	startPos := Position{Line: l.line, Col: l.col}
	if l.eof() {
		return l.token(TokenEOF, "", startPos), nil
	}
	ch := l.peek()
	if ch == '\n' {
		l.advance()
		return l.token(TokenEOL, "\n", startPos), nil
	}
	if isIdentStart(ch) {
		text := l.readIdent()
		if kind, ok := keywords[text]; ok {
			return l.token(kind, text, startPos), nil
		}
		return l.token(TokenIdent, text, startPos), nil
	}
	if isDigit(ch) {
		text := l.readNumber()
		return l.token(TokenNumber, text, startPos), nil
	}
	switch ch {
	case '"':
		text, err := l.readString(startPos)
		if err != nil {
			return Token{}, err
		}
		return l.token(TokenString, text, startPos), nil
	case '(':
		l.advance()
		return l.token(TokenLParen, "(", startPos), nil
	case ')':
		l.advance()
		return l.token(TokenRParen, ")", startPos), nil
	case '{':
		l.advance()
		return l.token(TokenLBrace, "{", startPos), nil
	case '}':
		l.advance()
		return l.token(TokenRBrace, "}", startPos), nil
	case ',':
		l.advance()
		return l.token(TokenComma, ",", startPos), nil
	case ';':
		l.advance()
		return l.token(TokenSemicolon, ";", startPos), nil
	case '+':
		l.advance()
		return l.token(TokenPlus, "+", startPos), nil
	case '-':
		l.advance()
		return l.token(TokenMinus, "-", startPos), nil
	case '*':
		l.advance()
		return l.token(TokenStar, "*", startPos), nil
	case '/':
		l.advance()
		return l.token(TokenSlash, "/", startPos), nil
	case '%':
		l.advance()
		return l.token(TokenPercent, "%", startPos), nil
	case '^':
		l.advance()
		return l.token(TokenCaret, "^", startPos), nil
	case '#':
		l.advance()
		return l.token(TokenHash, "#", startPos), nil
	case '=':
		if l.match("==") {
			return l.token(TokenEqEq, "==", startPos), nil
		}
		l.advance()
		return l.token(TokenEq, "=", startPos), nil
	case '!':
		if l.match("!=") {
			return l.token(TokenNotEq, "!=", startPos), nil
		}
		return Token{}, l.errorf(startPos, "unrecognized character '!'")
	case '<':
		if l.match("<=") {
			return l.token(TokenLTE, "<=", startPos), nil
		}
		l.advance()
		return l.token(TokenLT, "<", startPos), nil
	case '>':
		if l.match(">=") {
			return l.token(TokenGTE, ">=", startPos), nil
		}
		l.advance()
		return l.token(TokenGT, ">", startPos), nil
	default:
		return Token{}, l.errorf(startPos, "unrecognized character %q", ch)
	}
}

func (l *Lexer) Peek() (Token, error) {
	if l.peeked == nil {
		tok, err := l.Next()
		if err != nil {
			return Token{}, err
		}
		l.peeked = &tok
	}
	return *l.peeked, nil
}

func (l *Lexer) token(kind TokenKind, text string, pos Position) Token {
	return Token{Kind: kind, Text: text, File: l.file, Pos: pos}
}

// skipSpace discards whitespace other than newline and // comments up to
// (not including) the next newline.
func (l *Lexer) skipSpace() {
	for {
		if l.eof() {
			return
		}
		ch := l.peek()
		if ch == '/' && l.peekN(1) == '/' {
			for !l.eof() && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		if ch != '\n' && unicode.IsSpace(ch) {
			l.advance()
			continue
		}
		return
	}
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for !l.eof() {
		if !isIdentPart(l.peek()) {
			break
		}
		l.advance()
	}
	return l.src[start:l.pos]
}

// readNumber reads digits with an optional single fraction. A trailing dot
// without digits is left in place and rejected as an unrecognized character.
func (l *Lexer) readNumber() string {
	start := l.pos
	for !l.eof() && isDigit(l.peek()) {
		l.advance()
	}
	if !l.eof() && l.peek() == '.' && isDigit(l.peekN(1)) {
		l.advance()
		for !l.eof() && isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.src[start:l.pos]
}

func (l *Lexer) readString(startPos Position) (string, error) {
	l.advance()
	var b strings.Builder
	for {
		if l.eof() {
			return "", l.errorf(startPos, "unterminated string literal")
		}
		ch := l.peek()
		if ch == '"' {
			l.advance()
			return b.String(), nil
		}
		if ch == '\n' {
			return "", l.errorf(startPos, "unterminated string literal")
		}
		if ch == '\\' {
			escPos := Position{Line: l.line, Col: l.col}
			l.advance()
			if l.eof() {
				return "", l.errorf(startPos, "unterminated string literal")
			}
			esc := l.peek()
			l.advance()
			switch esc {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				return "", l.errorf(escPos, "unrecognized escape sequence '\\%c'", esc)
			}
			continue
		}
		b.WriteRune(ch)
		l.advance()
	}
}

func (l *Lexer) match(s string) bool {
	if strings.HasPrefix(l.src[l.pos:], s) {
		for range s {
			l.advance()
		}
		return true
	}
	return false
}

func (l *Lexer) advance() {
	if l.eof() {
		return
	}
	_, size := utf8.DecodeRuneInString(l.src[l.pos:])
	ch := l.src[l.pos : l.pos+size]
	l.pos += size
	if ch == "\n" {
		l.line++
		l.col = 1
		return
	}
	l.col++
}

func (l *Lexer) peek() rune {
	if l.eof() {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return ch
}

func (l *Lexer) peekN(n int) rune {
	idx := l.pos
	for i := 0; i < n; i++ {
		if idx >= len(l.src) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(l.src[idx:])
		idx += size
	}
	if idx >= len(l.src) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.src[idx:])
	return ch
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.src)
}

func (l *Lexer) errorf(pos Position, format string, args ...interface{}) error {
	return diag.Errorf(diag.Lexical, l.file, pos.Line, pos.Col, format, args...)
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
