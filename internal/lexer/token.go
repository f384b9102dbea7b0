package lexer

import "fmt"

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenEOL
	TokenIdent
	TokenNumber
	TokenString
	TokenVar
	TokenConst
	TokenFunc
	TokenIf
	TokenElse
	TokenLoop
	TokenImport
	TokenReturn
	TokenTrue
	TokenFalse
	TokenAnd
	TokenOr
	TokenNot
	TokenTypeNumber
	TokenTypeString
	TokenTypeBool
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenCaret
	TokenHash
	TokenEqEq
	TokenNotEq
	TokenLT
	TokenLTE
	TokenGT
	TokenGTE
	TokenEq
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenSemicolon
)

type Position struct {
	Line int
	Col  int
}

// Token is one lexeme in source order. Tokens are immutable; File names the
// source they came from so diagnostics survive across imported files.
type Token struct {
	Kind TokenKind
	Text string
	File string
	Pos  Position
}

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "eof"
	case TokenEOL:
		return "end of line"
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number literal"
	case TokenString:
		return "string literal"
	case TokenVar:
		return "var"
	case TokenConst:
		return "const"
	case TokenFunc:
		return "func"
	case TokenIf:
		return "if"
	case TokenElse:
		return "else"
	case TokenLoop:
		return "loop"
	case TokenImport:
		return "import"
	case TokenReturn:
		return "return"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenNot:
		return "not"
	case TokenTypeNumber:
		return "number"
	case TokenTypeString:
		return "string"
	case TokenTypeBool:
		return "bool"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPercent:
		return "%"
	case TokenCaret:
		return "^"
	case TokenHash:
		return "#"
	case TokenEqEq:
		return "=="
	case TokenNotEq:
		return "!="
	case TokenLT:
		return "<"
	case TokenLTE:
		return "<="
	case TokenGT:
		return ">"
	case TokenGTE:
		return ">="
	case TokenEq:
		return "="
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBrace:
		return "{"
	case TokenRBrace:
		return "}"
	case TokenComma:
		return ","
	case TokenSemicolon:
		return ";"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

var keywords = map[string]TokenKind{
	"var":    TokenVar,
	"const":  TokenConst,
	"func":   TokenFunc,
	"if":     TokenIf,
	"else":   TokenElse,
	"loop":   TokenLoop,
	"import": TokenImport,
	"return": TokenReturn,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"and":    TokenAnd,
	"or":     TokenOr,
	"not":    TokenNot,
	"number": TokenTypeNumber,
	"string": TokenTypeString,
	"bool":   TokenTypeBool,
}
