package runtime

import (
	"io"
	"math"
	"os"

	"spl/internal/ast"
	"spl/internal/diag"
)

// signal is the control-flow result threaded through statement execution.
// A return unwinds by propagating sigReturn upward instead of panicking;
// the function-call boundary catches it.
type signal int

const (
	sigNormal signal = iota
	sigReturn
)

type ctrl struct {
	sig    signal
	val    Value
	hasVal bool
}

type errPos struct {
	file string
	span ast.Span
}

type Interp struct {
	global   *Frame
	stdout   io.Writer
	resolver *Resolver
	imported map[string]bool // import registry, canonical paths, append-only
}

type Option func(*Interp)

func WithStdout(w io.Writer) Option {
	return func(ip *Interp) { ip.stdout = w }
}

func WithResolver(r *Resolver) Option {
	return func(ip *Interp) { ip.resolver = r }
}

// New returns an interpreter whose global frame is pre-populated with the
// builtin library.
func New(opts ...Option) *Interp {
	ip := &Interp{
		global:   NewFrame(nil),
		stdout:   os.Stdout,
		resolver: &Resolver{},
		imported: map[string]bool{},
	}
	for _, opt := range opts {
		opt(ip)
	}
	registerBuiltins(ip)
	return ip
}

// Run executes a program's top-level statements in source order against the
// global frame. The returned error may be a *diag.ExitError when the program
// called exit.
func (ip *Interp) Run(prog *ast.Program) error {
	ip.imported[prog.File] = true
	for _, stmt := range prog.Stmts {
		if err := ip.execTop(stmt, prog.File); err != nil {
			return err
		}
	}
	return nil
}

// Eval evaluates one expression against the global frame. hasValue is false
// when the expression was a call that produced no result.
func (ip *Interp) Eval(expr ast.Expr, file string) (Value, bool, error) {
	if call, ok := expr.(*ast.CallExpr); ok {
		return ip.evalCall(ip.global, call, file)
	}
	v, err := ip.evalExpr(ip.global, expr, file)
	return v, err == nil, err
}

func (ip *Interp) execTop(stmt ast.Stmt, file string) error {
	if fd, ok := stmt.(*ast.FuncDecl); ok {
		fn := &UserFunction{Decl: fd, File: file, Closure: ip.global}
		if !ip.global.Define(fd.Name, &Binding{Value: FuncValue(fn), Const: true, DeclKind: ValFunc}) {
			return ip.errf(diag.Semantic, errPos{file, fd.GetSpan()}, "redeclaration of '%s'", fd.Name)
		}
		return nil
	}
	c, err := ip.execStmt(ip.global, stmt, file)
	if err != nil {
		return err
	}
	if c.sig == sigReturn {
		return ip.errf(diag.Semantic, errPos{file, stmt.GetSpan()}, "return outside of a function")
	}
	return nil
}

func (ip *Interp) execStmt(fr *Frame, stmt ast.Stmt, file string) (ctrl, error) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		return ctrl{}, ip.execDecl(fr, s.Name, s.Type, s.Init, false, s.GetSpan(), file)
	case *ast.ConstDecl:
		return ctrl{}, ip.execDecl(fr, s.Name, s.Type, s.Init, true, s.GetSpan(), file)
	case *ast.AssignStmt:
		return ctrl{}, ip.execAssign(fr, s, file)
	case *ast.IfStmt:
		return ip.execIf(fr, s, file)
	case *ast.LoopStmt:
		return ip.execLoop(fr, s, file)
	case *ast.BlockStmt:
		return ip.execBlock(fr, s, file)
	case *ast.ReturnStmt:
		if s.Value == nil {
			return ctrl{sig: sigReturn}, nil
		}
		v, err := ip.evalExpr(fr, s.Value, file)
		if err != nil {
			return ctrl{}, err
		}
		return ctrl{sig: sigReturn, val: v, hasVal: true}, nil
	case *ast.ImportStmt:
		return ctrl{}, ip.execImport(s, file)
	case *ast.FuncDecl:
		// Unreachable when the parser and checker ran; kept as the runtime
		// backstop for the placement rule.
		return ctrl{}, ip.errf(diag.Semantic, errPos{file, s.GetSpan()}, "function '%s' declared inside a block", s.Name)
	case *ast.ExprStmt:
		// A call in statement position may discard its result.
		if call, ok := s.Expr.(*ast.CallExpr); ok {
			_, _, err := ip.evalCall(fr, call, file)
			return ctrl{}, err
		}
		_, err := ip.evalExpr(fr, s.Expr, file)
		return ctrl{}, err
	default:
		return ctrl{}, ip.errf(diag.Semantic, errPos{file, stmt.GetSpan()}, "unsupported statement")
	}
}

func (ip *Interp) execDecl(fr *Frame, name string, typ ast.TypeName, init ast.Expr, constant bool, span ast.Span, file string) error {
	v := DefaultValue(typ)
	if init != nil {
		ev, err := ip.evalExpr(fr, init, file)
		if err != nil {
			return err
		}
		if ev.Kind != kindOfType(typ) {
			return ip.errf(diag.TypeMismatch, errPos{file, span}, "cannot initialize %s '%s' with %s value", typ, name, ev.Kind)
		}
		v = ev
	}
	if !fr.Define(name, &Binding{Value: v, Const: constant, DeclKind: kindOfType(typ)}) {
		return ip.errf(diag.Semantic, errPos{file, span}, "redeclaration of '%s'", name)
	}
	return nil
}

func (ip *Interp) execAssign(fr *Frame, s *ast.AssignStmt, file string) error {
	b := fr.Resolve(s.Name)
	if b == nil {
		return ip.errf(diag.UnboundName, errPos{file, s.GetSpan()}, "assignment to undeclared name '%s'", s.Name)
	}
	if b.Const {
		return ip.errf(diag.ConstantReassignment, errPos{file, s.GetSpan()}, "cannot assign to constant '%s'", s.Name)
	}
	v, err := ip.evalExpr(fr, s.Value, file)
	if err != nil {
		return err
	}
	if v.Kind != b.DeclKind {
		return ip.errf(diag.TypeMismatch, errPos{file, s.GetSpan()}, "cannot assign %s value to %s '%s'", v.Kind, b.DeclKind, s.Name)
	}
	b.Value = v
	return nil
}

func (ip *Interp) execIf(fr *Frame, s *ast.IfStmt, file string) (ctrl, error) {
	for _, arm := range s.Arms {
		cond, err := ip.evalExpr(fr, arm.Cond, file)
		if err != nil {
			return ctrl{}, err
		}
		if cond.Kind != ValBool {
			return ctrl{}, ip.errf(diag.TypeMismatch, errPos{file, arm.Cond.GetSpan()}, "if condition must be bool, found %s", cond.Kind)
		}
		if cond.Bool {
			return ip.execBlock(fr, arm.Body, file)
		}
	}
	if s.Else != nil {
		return ip.execBlock(fr, s.Else, file)
	}
	return ctrl{}, nil
}

func (ip *Interp) execLoop(fr *Frame, s *ast.LoopStmt, file string) (ctrl, error) {
	for {
		cond, err := ip.evalExpr(fr, s.Cond, file)
		if err != nil {
			return ctrl{}, err
		}
		if cond.Kind != ValBool {
			return ctrl{}, ip.errf(diag.TypeMismatch, errPos{file, s.Cond.GetSpan()}, "loop condition must be bool, found %s", cond.Kind)
		}
		if !cond.Bool {
			return ctrl{}, nil
		}
		c, err := ip.execBlock(fr, s.Body, file)
		if err != nil {
			return ctrl{}, err
		}
		if c.sig == sigReturn {
			return c, nil
		}
	}
}

// execBlock runs a block in a fresh child frame. The frame is unreachable
// after return on every exit path, fall-through, returned signal or error.
func (ip *Interp) execBlock(parent *Frame, block *ast.BlockStmt, file string) (ctrl, error) {
	fr := NewFrame(parent)
	for _, stmt := range block.Stmts {
		c, err := ip.execStmt(fr, stmt, file)
		if err != nil {
			return ctrl{}, err
		}
		if c.sig == sigReturn {
			return c, nil
		}
	}
	return ctrl{}, nil
}

func (ip *Interp) evalExpr(fr *Frame, expr ast.Expr, file string) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLit:
		return NumberValue(e.Value), nil
	case *ast.StringLit:
		return StringValue(e.Value), nil
	case *ast.BoolLit:
		return BoolValue(e.Value), nil
	case *ast.IdentExpr:
		b := fr.Resolve(e.Name)
		if b == nil {
			return Value{}, ip.errf(diag.UnboundName, errPos{file, e.GetSpan()}, "undeclared name '%s'", e.Name)
		}
		return b.Value, nil
	case *ast.UnaryExpr:
		return ip.evalUnary(fr, e, file)
	case *ast.BinaryExpr:
		return ip.evalBinary(fr, e, file)
	case *ast.CallExpr:
		v, hasVal, err := ip.evalCall(fr, e, file)
		if err != nil {
			return Value{}, err
		}
		if !hasVal {
			return Value{}, ip.errf(diag.NoReturnValueUsed, errPos{file, e.GetSpan()}, "call produced no value")
		}
		return v, nil
	default:
		return Value{}, ip.errf(diag.Semantic, errPos{file, expr.GetSpan()}, "unsupported expression")
	}
}

func (ip *Interp) evalUnary(fr *Frame, e *ast.UnaryExpr, file string) (Value, error) {
	v, err := ip.evalExpr(fr, e.Expr, file)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case "-":
		if v.Kind != ValNumber {
			return Value{}, ip.errf(diag.TypeMismatch, errPos{file, e.GetSpan()}, "operator '-' requires a number operand, found %s", v.Kind)
		}
		return NumberValue(-v.Num), nil
	case "not":
		if v.Kind != ValBool {
			return Value{}, ip.errf(diag.TypeMismatch, errPos{file, e.GetSpan()}, "operator 'not' requires a bool operand, found %s", v.Kind)
		}
		return BoolValue(!v.Bool), nil
	default:
		return Value{}, ip.errf(diag.Semantic, errPos{file, e.GetSpan()}, "unsupported unary operator '%s'", e.Op)
	}
}

func (ip *Interp) evalBinary(fr *Frame, e *ast.BinaryExpr, file string) (Value, error) {
	// and/or evaluate their right operand only when it can decide the result.
	if e.Op == "and" || e.Op == "or" {
		return ip.evalLogical(fr, e, file)
	}
	left, err := ip.evalExpr(fr, e.Left, file)
	if err != nil {
		return Value{}, err
	}
	right, err := ip.evalExpr(fr, e.Right, file)
	if err != nil {
		return Value{}, err
	}
	at := errPos{file, e.GetSpan()}
	switch e.Op {
	case "+", "-", "*", "/", "%", "^":
		if left.Kind != ValNumber || right.Kind != ValNumber {
			return Value{}, ip.errf(diag.TypeMismatch, at, "operator '%s' requires number operands, found %s and %s", e.Op, left.Kind, right.Kind)
		}
		return ip.evalArith(e.Op, left.Num, right.Num, at)
	case "<", "<=", ">", ">=":
		return ip.evalRelational(e.Op, left, right, at)
	case "==", "!=":
		return ip.evalEquality(e.Op, left, right, at)
	case "#":
		if left.Kind != ValString || right.Kind != ValString {
			return Value{}, ip.errf(diag.TypeMismatch, at, "operator '#' requires string operands, found %s and %s", left.Kind, right.Kind)
		}
		return StringValue(left.Str + right.Str), nil
	default:
		return Value{}, ip.errf(diag.Semantic, at, "unsupported operator '%s'", e.Op)
	}
}

func (ip *Interp) evalLogical(fr *Frame, e *ast.BinaryExpr, file string) (Value, error) {
	left, err := ip.evalExpr(fr, e.Left, file)
	if err != nil {
		return Value{}, err
	}
	if left.Kind != ValBool {
		return Value{}, ip.errf(diag.TypeMismatch, errPos{file, e.GetSpan()}, "operator '%s' requires bool operands, found %s", e.Op, left.Kind)
	}
	if e.Op == "and" && !left.Bool {
		return BoolValue(false), nil
	}
	if e.Op == "or" && left.Bool {
		return BoolValue(true), nil
	}
	right, err := ip.evalExpr(fr, e.Right, file)
	if err != nil {
		return Value{}, err
	}
	if right.Kind != ValBool {
		return Value{}, ip.errf(diag.TypeMismatch, errPos{file, e.GetSpan()}, "operator '%s' requires bool operands, found %s", e.Op, right.Kind)
	}
	return BoolValue(right.Bool), nil
}

func (ip *Interp) evalArith(op string, l, r float64, at errPos) (Value, error) {
	switch op {
	case "+":
		return NumberValue(l + r), nil
	case "-":
		return NumberValue(l - r), nil
	case "*":
		return NumberValue(l * r), nil
	case "/":
		if r == 0 {
			return Value{}, ip.errf(diag.DivisionByZero, at, "division by zero")
		}
		return NumberValue(l / r), nil
	case "%":
		if r == 0 {
			return Value{}, ip.errf(diag.DivisionByZero, at, "modulo by zero")
		}
		return NumberValue(math.Mod(l, r)), nil
	default: // "^"
		return NumberValue(math.Pow(l, r)), nil
	}
}

func (ip *Interp) evalRelational(op string, left, right Value, at errPos) (Value, error) {
	if left.Kind != right.Kind || (left.Kind != ValNumber && left.Kind != ValString) {
		return Value{}, ip.errf(diag.TypeMismatch, at, "operator '%s' requires two numbers or two strings, found %s and %s", op, left.Kind, right.Kind)
	}
	var lt, eq bool
	if left.Kind == ValNumber {
		lt, eq = left.Num < right.Num, left.Num == right.Num
	} else {
		lt, eq = left.Str < right.Str, left.Str == right.Str
	}
	switch op {
	case "<":
		return BoolValue(lt), nil
	case "<=":
		return BoolValue(lt || eq), nil
	case ">":
		return BoolValue(!lt && !eq), nil
	default: // ">="
		return BoolValue(!lt), nil
	}
}

func (ip *Interp) evalEquality(op string, left, right Value, at errPos) (Value, error) {
	if left.Kind != right.Kind || left.Kind == ValFunc {
		return Value{}, ip.errf(diag.TypeMismatch, at, "operator '%s' requires operands of the same type, found %s and %s", op, left.Kind, right.Kind)
	}
	var eq bool
	switch left.Kind {
	case ValNumber:
		eq = left.Num == right.Num
	case ValString:
		eq = left.Str == right.Str
	case ValBool:
		eq = left.Bool == right.Bool
	}
	if op == "!=" {
		eq = !eq
	}
	return BoolValue(eq), nil
}

func (ip *Interp) evalCall(fr *Frame, e *ast.CallExpr, file string) (Value, bool, error) {
	callee, err := ip.evalExpr(fr, e.Callee, file)
	if err != nil {
		return Value{}, false, err
	}
	if callee.Kind != ValFunc {
		return Value{}, false, ip.errf(diag.TypeMismatch, errPos{file, e.GetSpan()}, "called value is %s, not a function", callee.Kind)
	}
	args := make([]Value, len(e.Args))
	for i, arg := range e.Args {
		v, err := ip.evalExpr(fr, arg, file)
		if err != nil {
			return Value{}, false, err
		}
		args[i] = v
	}
	at := errPos{file, e.GetSpan()}
	if len(args) != callee.Fn.Arity() {
		return Value{}, false, ip.errf(diag.Arity, at, "'%s' expects %d argument(s), found %d", callee.Fn.Name(), callee.Fn.Arity(), len(args))
	}
	switch fn := callee.Fn.(type) {
	case *NativeFunction:
		return fn.handler(ip, args, at)
	case *UserFunction:
		return ip.callUser(fn, args, at)
	default:
		return Value{}, false, ip.errf(diag.TypeMismatch, at, "uncallable function value")
	}
}

// callUser binds arguments by position in a child of the function's closure
// frame and runs the body; a returned signal yields the call's result.
func (ip *Interp) callUser(fn *UserFunction, args []Value, at errPos) (Value, bool, error) {
	fr := NewFrame(fn.Closure)
	for i, p := range fn.Decl.Params {
		if args[i].Kind != kindOfType(p.Type) {
			return Value{}, false, ip.errf(diag.TypeMismatch, at, "argument %d of '%s' must be %s, found %s", i+1, fn.Name(), p.Type, args[i].Kind)
		}
		if !fr.Define(p.Name, &Binding{Value: args[i], DeclKind: kindOfType(p.Type)}) {
			return Value{}, false, ip.errf(diag.Semantic, at, "duplicate parameter '%s' in '%s'", p.Name, fn.Name())
		}
	}
	c, err := ip.execBlock(fr, fn.Decl.Body, fn.File)
	if err != nil {
		return Value{}, false, err
	}
	if c.sig == sigReturn {
		return c.val, c.hasVal, nil
	}
	return Value{}, false, nil
}

func (ip *Interp) errf(kind diag.Kind, at errPos, format string, args ...interface{}) error {
	return diag.Errorf(kind, at.file, at.span.Start.Line, at.span.Start.Col, format, args...)
}
