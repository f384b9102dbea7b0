package types

import "spl/internal/ast"

type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindString
	KindBool
	KindVoid
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindVoid:
		return "void"
	case KindFunc:
		return "func"
	default:
		return "invalid"
	}
}

// Type describes a value or callable. For KindFunc, Params holds the declared
// parameter kinds and Ret the inferred result kind; RetKnown is false until
// the checker has seen the function body (forward and recursive calls).
// A KindInvalid parameter accepts any value kind (builtins only).
type Type struct {
	Kind     Kind
	Params   []Kind
	Ret      Kind
	RetKnown bool
}

func Number() *Type { return &Type{Kind: KindNumber} }
func String() *Type { return &Type{Kind: KindString} }
func Bool() *Type   { return &Type{Kind: KindBool} }

func FromName(n ast.TypeName) Kind {
	switch n {
	case ast.TypeNumber:
		return KindNumber
	case ast.TypeString:
		return KindString
	case ast.TypeBool:
		return KindBool
	default:
		return KindInvalid
	}
}
