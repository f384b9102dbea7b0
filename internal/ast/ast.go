package ast

// Program is the parsed form of one source file. Top-level statements run in
// source order against the global frame; FuncDecl nodes appear only here.
type Program struct {
	File  string
	Stmts []Stmt
}

// TypeName is one of the three declarable SPL types.
type TypeName int

const (
	TypeNumber TypeName = iota
	TypeString
	TypeBool
)

func (t TypeName) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	default:
		return "invalid"
	}
}

type Stmt interface {
	stmtNode()
	GetSpan() Span
}

type VarDecl struct {
	Name string
	Type TypeName
	Init Expr // nil means the type's default value
	Span Span
}

func (*VarDecl) stmtNode()       {}
func (s *VarDecl) GetSpan() Span { return s.Span }

type ConstDecl struct {
	Name string
	Type TypeName
	Init Expr // nil means the type's default value
	Span Span
}

func (*ConstDecl) stmtNode()       {}
func (s *ConstDecl) GetSpan() Span { return s.Span }

type Param struct {
	Type TypeName
	Name string
	Span Span
}

// FuncDecl is a top-level-only declaration; the parser never produces one
// inside a block and the checker re-validates placement.
type FuncDecl struct {
	Name   string
	Params []Param
	Body   *BlockStmt
	Span   Span
}

func (*FuncDecl) stmtNode()       {}
func (s *FuncDecl) GetSpan() Span { return s.Span }

type BlockStmt struct {
	Stmts []Stmt
	Span  Span
}

func (*BlockStmt) stmtNode()       {}
func (s *BlockStmt) GetSpan() Span { return s.Span }

// IfArm is one (condition, block) pair of an if/else-if chain.
type IfArm struct {
	Cond Expr
	Body *BlockStmt
	Span Span
}

type IfStmt struct {
	Arms []IfArm
	Else *BlockStmt // optional trailing else
	Span Span
}

func (*IfStmt) stmtNode()       {}
func (s *IfStmt) GetSpan() Span { return s.Span }

type LoopStmt struct {
	Cond Expr
	Body *BlockStmt
	Span Span
}

func (*LoopStmt) stmtNode()       {}
func (s *LoopStmt) GetSpan() Span { return s.Span }

type AssignStmt struct {
	Name  string
	Value Expr
	Span  Span
}

func (*AssignStmt) stmtNode()       {}
func (s *AssignStmt) GetSpan() Span { return s.Span }

type ReturnStmt struct {
	Value Expr // nil for a bare return
	Span  Span
}

func (*ReturnStmt) stmtNode()       {}
func (s *ReturnStmt) GetSpan() Span { return s.Span }

type ImportStmt struct {
	Target string
	Span   Span
}

func (*ImportStmt) stmtNode()       {}
func (s *ImportStmt) GetSpan() Span { return s.Span }

type ExprStmt struct {
	Expr Expr
	Span Span
}

func (*ExprStmt) stmtNode()       {}
func (s *ExprStmt) GetSpan() Span { return s.Span }

type Expr interface {
	exprNode()
	GetSpan() Span
}

type IdentExpr struct {
	Name string
	Span Span
}

func (*IdentExpr) exprNode()       {}
func (e *IdentExpr) GetSpan() Span { return e.Span }

type NumberLit struct {
	Value float64
	Span  Span
}

func (*NumberLit) exprNode()       {}
func (e *NumberLit) GetSpan() Span { return e.Span }

type StringLit struct {
	Value string
	Span  Span
}

func (*StringLit) exprNode()       {}
func (e *StringLit) GetSpan() Span { return e.Span }

type BoolLit struct {
	Value bool
	Span  Span
}

func (*BoolLit) exprNode()       {}
func (e *BoolLit) GetSpan() Span { return e.Span }

type UnaryExpr struct {
	Op   string // "-" or "not"
	Expr Expr
	Span Span
}

func (*UnaryExpr) exprNode()       {}
func (e *UnaryExpr) GetSpan() Span { return e.Span }

type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Span  Span
}

func (*BinaryExpr) exprNode()       {}
func (e *BinaryExpr) GetSpan() Span { return e.Span }

type CallExpr struct {
	Callee Expr
	Args   []Expr
	Span   Span
}

func (*CallExpr) exprNode()       {}
func (e *CallExpr) GetSpan() Span { return e.Span }

type Span struct {
	Start Position
	End   Position
}

type Position struct {
	Line int
	Col  int
}
