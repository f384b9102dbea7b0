// Package formatter prints source in canonical form: one statement per
// line, two-space indentation, minimal parentheses.
package formatter

import (
	"strconv"
	"strings"

	"spl/internal/ast"
	"spl/internal/parser"
)

type Formatter struct {
	indent int
	buf    strings.Builder
}

func New() *Formatter {
	return &Formatter{}
}

// Format parses a source file and returns its canonical rendering.
func (f *Formatter) Format(path, src string) (string, error) {
	prog, err := parser.New(path, src).ParseProgram()
	if err != nil {
		return "", err
	}
	return f.FormatProgram(prog), nil
}

func (f *Formatter) FormatProgram(prog *ast.Program) string {
	f.buf.Reset()
	f.indent = 0
	for i, stmt := range prog.Stmts {
		// Blank line between top-level functions.
		if _, ok := stmt.(*ast.FuncDecl); ok && i > 0 {
			f.buf.WriteString("\n")
		}
		f.formatStmt(stmt)
	}
	return f.buf.String()
}

func (f *Formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.buf.WriteString("  ")
	}
}

func (f *Formatter) formatStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		f.formatDecl("var", s.Name, s.Type, s.Init)
	case *ast.ConstDecl:
		f.formatDecl("const", s.Name, s.Type, s.Init)
	case *ast.FuncDecl:
		f.formatFuncDecl(s)
	case *ast.IfStmt:
		f.formatIfStmt(s)
	case *ast.LoopStmt:
		f.writeIndent()
		f.buf.WriteString("loop (")
		f.formatExpr(s.Cond, 0)
		f.buf.WriteString(") ")
		f.formatBlock(s.Body)
		f.buf.WriteString("\n")
	case *ast.BlockStmt:
		f.writeIndent()
		f.formatBlock(s)
		f.buf.WriteString("\n")
	case *ast.AssignStmt:
		f.writeIndent()
		f.buf.WriteString(s.Name)
		f.buf.WriteString(" = ")
		f.formatExpr(s.Value, 0)
		f.buf.WriteString(";\n")
	case *ast.ReturnStmt:
		f.writeIndent()
		f.buf.WriteString("return")
		if s.Value != nil {
			f.buf.WriteString(" ")
			f.formatExpr(s.Value, 0)
		}
		f.buf.WriteString(";\n")
	case *ast.ImportStmt:
		f.writeIndent()
		f.buf.WriteString("import ")
		f.buf.WriteString(strconv.Quote(s.Target))
		f.buf.WriteString(";\n")
	case *ast.ExprStmt:
		f.writeIndent()
		f.formatExpr(s.Expr, 0)
		f.buf.WriteString(";\n")
	}
}

func (f *Formatter) formatDecl(kw, name string, typ ast.TypeName, init ast.Expr) {
	f.writeIndent()
	f.buf.WriteString(kw)
	f.buf.WriteString(" ")
	f.buf.WriteString(typ.String())
	f.buf.WriteString(" ")
	f.buf.WriteString(name)
	if init != nil {
		f.buf.WriteString(" = ")
		f.formatExpr(init, 0)
	}
	f.buf.WriteString(";\n")
}

func (f *Formatter) formatFuncDecl(d *ast.FuncDecl) {
	f.writeIndent()
	f.buf.WriteString("func ")
	f.buf.WriteString(d.Name)
	f.buf.WriteString("(")
	for i, p := range d.Params {
		if i > 0 {
			f.buf.WriteString(", ")
		}
		f.buf.WriteString(p.Type.String())
		f.buf.WriteString(" ")
		f.buf.WriteString(p.Name)
	}
	f.buf.WriteString(") ")
	f.formatBlock(d.Body)
	f.buf.WriteString("\n")
}

func (f *Formatter) formatIfStmt(s *ast.IfStmt) {
	f.writeIndent()
	for i, arm := range s.Arms {
		if i > 0 {
			f.buf.WriteString(" else ")
		}
		f.buf.WriteString("if (")
		f.formatExpr(arm.Cond, 0)
		f.buf.WriteString(") ")
		f.formatBlock(arm.Body)
	}
	if s.Else != nil {
		f.buf.WriteString(" else ")
		f.formatBlock(s.Else)
	}
	f.buf.WriteString("\n")
}

func (f *Formatter) formatBlock(block *ast.BlockStmt) {
	f.buf.WriteString("{\n")
	f.indent++
	for _, stmt := range block.Stmts {
		f.formatStmt(stmt)
	}
	f.indent--
	f.writeIndent()
	f.buf.WriteString("}")
}

// Operator precedence used to decide where parentheses are required.
// Mirrors the parser's grammar levels.
func opPrec(op string) int {
	switch op {
	case "or":
		return 1
	case "and":
		return 2
	case "==", "!=":
		return 3
	case "<", "<=", ">", ">=":
		return 4
	case "+", "-":
		return 5
	case "*", "/", "%":
		return 6
	case "#":
		return 8
	case "^":
		return 9
	default:
		return 10
	}
}

const unaryPrec = 7

// formatExpr writes e, parenthesizing it when its precedence is below min.
func (f *Formatter) formatExpr(e ast.Expr, min int) {
	switch x := e.(type) {
	case *ast.NumberLit:
		f.buf.WriteString(strconv.FormatFloat(x.Value, 'f', -1, 64))
	case *ast.StringLit:
		f.buf.WriteString(strconv.Quote(x.Value))
	case *ast.BoolLit:
		f.buf.WriteString(strconv.FormatBool(x.Value))
	case *ast.IdentExpr:
		f.buf.WriteString(x.Name)
	case *ast.UnaryExpr:
		f.formatUnary(x, min)
	case *ast.BinaryExpr:
		f.formatBinary(x, min)
	case *ast.CallExpr:
		f.formatExpr(x.Callee, 10)
		f.buf.WriteString("(")
		for i, arg := range x.Args {
			if i > 0 {
				f.buf.WriteString(", ")
			}
			f.formatExpr(arg, 0)
		}
		f.buf.WriteString(")")
	}
}

func (f *Formatter) formatUnary(x *ast.UnaryExpr, min int) {
	paren := unaryPrec < min
	if paren {
		f.buf.WriteString("(")
	}
	f.buf.WriteString(x.Op)
	if x.Op == "not" {
		f.buf.WriteString(" ")
	}
	f.formatExpr(x.Expr, unaryPrec)
	if paren {
		f.buf.WriteString(")")
	}
}

func (f *Formatter) formatBinary(x *ast.BinaryExpr, min int) {
	p := opPrec(x.Op)
	paren := p < min
	if paren {
		f.buf.WriteString("(")
	}
	// ^ is right-associative: its right operand re-enters the unary level,
	// so anything at unary precedence or above needs no parentheses there.
	lmin, rmin := p, p+1
	if x.Op == "^" {
		lmin, rmin = p+1, unaryPrec
	}
	f.formatExpr(x.Left, lmin)
	f.buf.WriteString(" ")
	f.buf.WriteString(x.Op)
	f.buf.WriteString(" ")
	f.formatExpr(x.Right, rmin)
	if paren {
		f.buf.WriteString(")")
	}
}
