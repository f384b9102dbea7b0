package runtime

import (
	"strconv"

	"spl/internal/ast"
)

type ValueKind int

const (
	ValNumber ValueKind = iota
	ValString
	ValBool
	ValFunc
)

func (k ValueKind) String() string {
	switch k {
	case ValNumber:
		return "number"
	case ValString:
		return "string"
	case ValBool:
		return "bool"
	case ValFunc:
		return "func"
	default:
		return "invalid"
	}
}

// Value is the tagged runtime representation. There is no implicit coercion
// between kinds; conversion happens only through the casting builtins.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
	Fn   Callable
}

func NumberValue(f float64) Value { return Value{Kind: ValNumber, Num: f} }
func StringValue(s string) Value  { return Value{Kind: ValString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: ValBool, Bool: b} }
func FuncValue(fn Callable) Value { return Value{Kind: ValFunc, Fn: fn} }

// DefaultValue is the initializer-less value of a declared type: 0, "" or
// false.
func DefaultValue(t ast.TypeName) Value {
	switch t {
	case ast.TypeString:
		return StringValue("")
	case ast.TypeBool:
		return BoolValue(false)
	default:
		return NumberValue(0)
	}
}

func kindOfType(t ast.TypeName) ValueKind {
	switch t {
	case ast.TypeString:
		return ValString
	case ast.TypeBool:
		return ValBool
	default:
		return ValNumber
	}
}

// Render is the canonical textual form shared by string() and echo. Numbers
// use the shortest decimal representation that round-trips, so whole values
// print without a fraction ("0", "5") and fractions keep only their
// significant digits ("4.5").
func (v Value) Render() string {
	switch v.Kind {
	case ValNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValString:
		return v.Str
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return "<func " + v.Fn.Name() + ">"
	}
}

// Callable unifies user-defined functions and native builtins behind one
// dispatch surface, so call sites treat both identically.
type Callable interface {
	Name() string
	Arity() int
}

// UserFunction is a declared SPL function together with the lexical frame
// that was active at declaration time. Calls run against a child of that
// frame, never the caller's frame.
type UserFunction struct {
	Decl    *ast.FuncDecl
	File    string
	Closure *Frame
}

func (f *UserFunction) Name() string { return f.Decl.Name }
func (f *UserFunction) Arity() int   { return len(f.Decl.Params) }

// NativeHandler executes a builtin. hasValue reports whether the call
// produced a result usable as an expression value.
type NativeHandler func(ip *Interp, args []Value, at errPos) (v Value, hasValue bool, err error)

type NativeFunction struct {
	name    string
	arity   int
	handler NativeHandler
}

func (f *NativeFunction) Name() string { return f.name }
func (f *NativeFunction) Arity() int   { return f.arity }
