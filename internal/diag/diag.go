package diag

import "fmt"

type Kind int

const (
	Lexical Kind = iota
	Syntax
	Semantic
	TypeMismatch
	DivisionByZero
	UnboundName
	ConstantReassignment
	NumberParse
	BoolParse
	NoReturnValueUsed
	Arity
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical error"
	case Syntax:
		return "syntax error"
	case Semantic:
		return "semantic error"
	case TypeMismatch:
		return "type mismatch"
	case DivisionByZero:
		return "division by zero"
	case UnboundName:
		return "unbound name"
	case ConstantReassignment:
		return "constant reassignment"
	case NumberParse:
		return "number parse error"
	case BoolParse:
		return "bool parse error"
	case NoReturnValueUsed:
		return "no return value"
	case Arity:
		return "arity error"
	default:
		return fmt.Sprintf("error(%d)", int(k))
	}
}

// Runtime reports whether the kind is one of the runtime sub-kinds,
// as opposed to an error detected before evaluation begins.
func (k Kind) Runtime() bool {
	switch k {
	case Lexical, Syntax, Semantic:
		return false
	default:
		return true
	}
}

// Error is a positioned diagnostic. Every error produced by the pipeline
// carries the originating file, 1-based line and column, and a message.
type Error struct {
	Kind Kind
	File string
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

func Errorf(kind Kind, file string, line, col int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, File: file, Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// ExitError is the control error raised by the exit builtin. It unwinds
// every active frame; the command-line layer maps it to the process status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit(%d)", e.Code)
}
