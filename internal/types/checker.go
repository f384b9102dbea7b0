package types

import (
	"spl/internal/ast"
	"spl/internal/diag"
	"spl/internal/parser"
)

type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymConst
	SymFunc
	SymBuiltin
)

type Symbol struct {
	Name string
	Kind SymbolKind
	Type *Type
	Ord  int // declaration ordinal within its scope
	File string
	Decl *ast.FuncDecl // set for SymFunc
}

type scope struct {
	parent *scope
	vars   map[string]*Symbol
	seq    int // ordinal of the statement currently being checked
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]*Symbol{}, seq: -1}
}

func (s *scope) lookup(name string) (*Symbol, *scope) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.vars[name]; ok {
			return sym, cur
		}
	}
	return nil, nil
}

// Importer resolves and reads imported source files. The checker uses it to
// analyze imports statically; the evaluator uses the same implementation at
// run time.
type Importer interface {
	Resolve(target, importer string) (string, error)
	Load(path string) (string, error)
}

// item is one top-level statement queued for the body-checking pass, with the
// global-scope ordinal it was collected at.
type item struct {
	stmt ast.Stmt
	file string
	ord  int
}

type Checker struct {
	importer Importer
	global   *scope
	ord      int
	items    []item
	checked  map[string]bool // static import set, canonical paths
	inflight map[string]bool // import chain, for cycle detection
	curFn    *Symbol // function whose body is being checked
	errs     []error
}

func NewChecker(importer Importer) *Checker {
	c := &Checker{
		importer: importer,
		global:   newScope(nil),
		checked:  map[string]bool{},
		inflight: map[string]bool{},
	}
	c.registerBuiltins()
	return c
}

// Builtin signatures. KindInvalid as a parameter means any value kind.
func (c *Checker) registerBuiltins() {
	reg := func(name string, params []Kind, ret Kind) {
		c.global.vars[name] = &Symbol{
			Name: name,
			Kind: SymBuiltin,
			Ord:  -1,
			Type: &Type{Kind: KindFunc, Params: params, Ret: ret, RetKnown: true},
		}
	}
	reg("exit", []Kind{KindNumber}, KindVoid)
	reg("echo", []Kind{KindInvalid}, KindVoid)
	reg("strlen", []Kind{KindString}, KindNumber)
	reg("string", []Kind{KindInvalid}, KindString)
	reg("number", []Kind{KindString}, KindNumber)
	reg("bool", []Kind{KindString}, KindBool)
}

// Check validates the program and everything it imports. It returns the
// first violation found, or nil.
func (c *Checker) Check(prog *ast.Program) error {
	c.checked[prog.File] = true
	c.inflight[prog.File] = true
	c.collectProgram(prog)
	delete(c.inflight, prog.File)
	if len(c.errs) > 0 {
		return c.errs[0]
	}
	c.checkItems()
	if len(c.errs) > 0 {
		return c.errs[0]
	}
	return nil
}

// collectProgram declares every top-level name of prog into the global scope
// in source order, inlining imported files at their import statement. Names
// from an imported file take ordinals at the import point, matching the
// "pasted here" execution semantics.
func (c *Checker) collectProgram(prog *ast.Program) {
	for _, stmt := range prog.Stmts {
		ord := c.ord
		c.ord++
		switch s := stmt.(type) {
		case *ast.VarDecl:
			c.declare(&Symbol{Name: s.Name, Kind: SymVar, Type: &Type{Kind: FromName(s.Type)}, Ord: ord, File: prog.File}, s.GetSpan(), prog.File)
		case *ast.ConstDecl:
			c.declare(&Symbol{Name: s.Name, Kind: SymConst, Type: &Type{Kind: FromName(s.Type)}, Ord: ord, File: prog.File}, s.GetSpan(), prog.File)
		case *ast.FuncDecl:
			params := make([]Kind, len(s.Params))
			for i, p := range s.Params {
				params[i] = FromName(p.Type)
			}
			sym := &Symbol{
				Name: s.Name,
				Kind: SymFunc,
				Type: &Type{Kind: KindFunc, Params: params, Ret: KindVoid},
				Ord:  ord,
				File: prog.File,
				Decl: s,
			}
			c.declare(sym, s.GetSpan(), prog.File)
		case *ast.ImportStmt:
			c.collectImport(s, prog.File)
			continue
		}
		c.items = append(c.items, item{stmt: stmt, file: prog.File, ord: ord})
	}
}

func (c *Checker) collectImport(s *ast.ImportStmt, importer string) {
	path, err := c.importer.Resolve(s.Target, importer)
	if err != nil {
		c.errorf(importer, s.GetSpan(), "cannot resolve import %q: %v", s.Target, err)
		return
	}
	if c.inflight[path] {
		c.errorf(importer, s.GetSpan(), "import cycle through %q", s.Target)
		return
	}
	if c.checked[path] {
		return
	}
	src, err := c.importer.Load(path)
	if err != nil {
		c.errorf(importer, s.GetSpan(), "cannot read import %q: %v", s.Target, err)
		return
	}
	prog, err := parser.New(path, src).ParseProgram()
	if err != nil {
		c.errs = append(c.errs, err)
		return
	}
	c.checked[path] = true
	c.inflight[path] = true
	c.collectProgram(prog)
	delete(c.inflight, path)
}

// checkItems is the body pass: initializers, conditions, function bodies and
// plain statements, in collection order.
func (c *Checker) checkItems() {
	for _, it := range c.items {
		c.global.seq = it.ord
		if fd, ok := it.stmt.(*ast.FuncDecl); ok {
			c.checkFuncBody(fd, it.file)
			continue
		}
		c.checkStmt(c.global, it.stmt, it.file)
	}
	c.global.seq = -1
}

// checkFuncBody checks a function body and infers the function's return
// type from the return statements it encounters. Returns whose value type is
// not yet known (forward or recursive calls) do not constrain the result.
func (c *Checker) checkFuncBody(fd *ast.FuncDecl, file string) {
	sym, _ := c.global.lookup(fd.Name)
	fnScope := newScope(c.global)
	for _, p := range fd.Params {
		c.declareIn(fnScope, &Symbol{Name: p.Name, Kind: SymVar, Type: &Type{Kind: FromName(p.Type)}, Ord: -1, File: file}, p.Span, file)
	}
	prevFn := c.curFn
	c.curFn = sym
	sym.Type.Ret = KindVoid
	c.checkBlock(fnScope, fd.Body, file)
	c.curFn = prevFn
	sym.Type.RetKnown = true
}

func (c *Checker) checkBlock(parent *scope, block *ast.BlockStmt, file string) {
	sc := newScope(parent)
	// Declarations are collected up front so nested scopes can see them
	// regardless of textual position; same-scope uses are ordered via seq.
	for i, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.VarDecl:
			c.declareIn(sc, &Symbol{Name: s.Name, Kind: SymVar, Type: &Type{Kind: FromName(s.Type)}, Ord: i, File: file}, s.GetSpan(), file)
		case *ast.ConstDecl:
			c.declareIn(sc, &Symbol{Name: s.Name, Kind: SymConst, Type: &Type{Kind: FromName(s.Type)}, Ord: i, File: file}, s.GetSpan(), file)
		}
	}
	for i, stmt := range block.Stmts {
		sc.seq = i
		c.checkStmt(sc, stmt, file)
	}
	sc.seq = -1
}

func (c *Checker) checkStmt(sc *scope, stmt ast.Stmt, file string) {
	switch s := stmt.(type) {
	case *ast.VarDecl, *ast.ConstDecl:
		c.checkDeclInit(sc, stmt, file)
	case *ast.FuncDecl:
		// The grammar already confines functions to the top level; this is
		// the defense-in-depth re-check.
		if sc != c.global {
			c.errorf(file, s.GetSpan(), "function '%s' declared inside a block; functions are only allowed at top level", s.Name)
		}
	case *ast.ImportStmt:
		if sc != c.global {
			c.errorf(file, s.GetSpan(), "import is only allowed at top level")
		}
	case *ast.AssignStmt:
		c.checkAssign(sc, s, file)
	case *ast.IfStmt:
		for _, arm := range s.Arms {
			c.requireBool(sc, arm.Cond, "if condition", file)
			c.checkBlock(sc, arm.Body, file)
		}
		if s.Else != nil {
			c.checkBlock(sc, s.Else, file)
		}
	case *ast.LoopStmt:
		c.requireBool(sc, s.Cond, "loop condition", file)
		c.checkBlock(sc, s.Body, file)
	case *ast.ReturnStmt:
		if c.curFn == nil {
			c.errorf(file, s.GetSpan(), "return outside of a function")
			return
		}
		if s.Value == nil {
			return
		}
		t := c.exprType(sc, s.Value, file)
		if t == nil {
			return
		}
		if c.curFn.Type.Ret == KindVoid {
			c.curFn.Type.Ret = t.Kind
		} else if c.curFn.Type.Ret != t.Kind {
			c.errorf(file, s.GetSpan(), "conflicting return types %s and %s in '%s'", c.curFn.Type.Ret, t.Kind, c.curFn.Name)
		}
	case *ast.BlockStmt:
		c.checkBlock(sc, s, file)
	case *ast.ExprStmt:
		// A call in statement position may discard its (possibly absent)
		// result; anything else is checked as a value.
		if call, ok := s.Expr.(*ast.CallExpr); ok {
			c.callType(sc, call, false, file)
			return
		}
		c.exprType(sc, s.Expr, file)
	}
}

func (c *Checker) checkDeclInit(sc *scope, stmt ast.Stmt, file string) {
	var name string
	var declType Kind
	var init ast.Expr
	var span ast.Span
	switch s := stmt.(type) {
	case *ast.VarDecl:
		name, declType, init, span = s.Name, FromName(s.Type), s.Init, s.GetSpan()
	case *ast.ConstDecl:
		name, declType, init, span = s.Name, FromName(s.Type), s.Init, s.GetSpan()
	}
	if init == nil {
		return
	}
	t := c.exprType(sc, init, file)
	if t != nil && t.Kind != declType {
		c.errorf(file, span, "cannot initialize %s '%s' with %s value", declType, name, t.Kind)
	}
}

func (c *Checker) checkAssign(sc *scope, s *ast.AssignStmt, file string) {
	sym, found := sc.lookup(s.Name)
	if sym == nil {
		c.errorf(file, s.GetSpan(), "assignment to undeclared name '%s'", s.Name)
		return
	}
	if found == sc && sc.seq >= 0 && sym.Ord > sc.seq {
		c.errorf(file, s.GetSpan(), "use of '%s' before its declaration", s.Name)
		return
	}
	switch sym.Kind {
	case SymConst:
		c.errorf(file, s.GetSpan(), "cannot assign to constant '%s'", s.Name)
		return
	case SymFunc, SymBuiltin:
		c.errorf(file, s.GetSpan(), "cannot assign to function '%s'", s.Name)
		return
	}
	t := c.exprType(sc, s.Value, file)
	if t != nil && sym.Type != nil && t.Kind != sym.Type.Kind {
		c.errorf(file, s.GetSpan(), "cannot assign %s value to %s '%s'", t.Kind, sym.Type.Kind, s.Name)
	}
}

func (c *Checker) requireBool(sc *scope, cond ast.Expr, what, file string) {
	t := c.exprType(sc, cond, file)
	if t != nil && t.Kind != KindBool {
		c.errorf(file, cond.GetSpan(), "%s must be bool, found %s", what, t.Kind)
	}
}

// exprType types an expression used as a value. It returns nil when the type
// is not statically known (forward or recursive calls); operator rules are
// only enforced where both operand types are known.
func (c *Checker) exprType(sc *scope, expr ast.Expr, file string) *Type {
	switch e := expr.(type) {
	case *ast.NumberLit:
		return Number()
	case *ast.StringLit:
		return String()
	case *ast.BoolLit:
		return Bool()
	case *ast.IdentExpr:
		return c.identType(sc, e, file)
	case *ast.UnaryExpr:
		return c.unaryType(sc, e, file)
	case *ast.BinaryExpr:
		return c.binaryType(sc, e, file)
	case *ast.CallExpr:
		return c.callType(sc, e, true, file)
	default:
		return nil
	}
}

func (c *Checker) identType(sc *scope, e *ast.IdentExpr, file string) *Type {
	if e.Name == "" {
		return nil
	}
	sym, found := sc.lookup(e.Name)
	if sym == nil {
		c.errorf(file, e.GetSpan(), "undeclared name '%s'", e.Name)
		return nil
	}
	if found == sc && sc.seq >= 0 && sym.Ord > sc.seq {
		c.errorf(file, e.GetSpan(), "use of '%s' before its declaration", e.Name)
		return nil
	}
	return sym.Type
}

func (c *Checker) unaryType(sc *scope, e *ast.UnaryExpr, file string) *Type {
	t := c.exprType(sc, e.Expr, file)
	switch e.Op {
	case "-":
		if t != nil && t.Kind != KindNumber {
			c.errorf(file, e.GetSpan(), "operator '-' requires a number operand, found %s", t.Kind)
			return nil
		}
		return Number()
	case "not":
		if t != nil && t.Kind != KindBool {
			c.errorf(file, e.GetSpan(), "operator 'not' requires a bool operand, found %s", t.Kind)
			return nil
		}
		return Bool()
	default:
		return nil
	}
}

func (c *Checker) binaryType(sc *scope, e *ast.BinaryExpr, file string) *Type {
	lt := c.exprType(sc, e.Left, file)
	rt := c.exprType(sc, e.Right, file)
	known := lt != nil && rt != nil
	switch e.Op {
	case "+", "-", "*", "/", "%", "^":
		if known && (lt.Kind != KindNumber || rt.Kind != KindNumber) {
			c.errorf(file, e.GetSpan(), "operator '%s' requires number operands, found %s and %s", e.Op, lt.Kind, rt.Kind)
			return nil
		}
		return Number()
	case "and", "or":
		if known && (lt.Kind != KindBool || rt.Kind != KindBool) {
			c.errorf(file, e.GetSpan(), "operator '%s' requires bool operands, found %s and %s", e.Op, lt.Kind, rt.Kind)
			return nil
		}
		return Bool()
	case "<", "<=", ">", ">=":
		if known {
			ok := lt.Kind == rt.Kind && (lt.Kind == KindNumber || lt.Kind == KindString)
			if !ok {
				c.errorf(file, e.GetSpan(), "operator '%s' requires two numbers or two strings, found %s and %s", e.Op, lt.Kind, rt.Kind)
				return nil
			}
		}
		return Bool()
	case "==", "!=":
		if known && lt.Kind != rt.Kind {
			c.errorf(file, e.GetSpan(), "operator '%s' requires operands of the same type, found %s and %s", e.Op, lt.Kind, rt.Kind)
			return nil
		}
		return Bool()
	case "#":
		if known && (lt.Kind != KindString || rt.Kind != KindString) {
			c.errorf(file, e.GetSpan(), "operator '#' requires string operands, found %s and %s", lt.Kind, rt.Kind)
			return nil
		}
		return String()
	default:
		return nil
	}
}

func (c *Checker) callType(sc *scope, e *ast.CallExpr, valueUsed bool, file string) *Type {
	ident, ok := e.Callee.(*ast.IdentExpr)
	if !ok {
		c.errorf(file, e.GetSpan(), "called expression is not a function")
		return nil
	}
	sym, found := sc.lookup(ident.Name)
	if sym == nil {
		c.errorf(file, e.GetSpan(), "undeclared name '%s'", ident.Name)
		return nil
	}
	if found == sc && sc.seq >= 0 && sym.Ord > sc.seq {
		c.errorf(file, e.GetSpan(), "use of '%s' before its declaration", ident.Name)
		return nil
	}
	if sym.Kind != SymFunc && sym.Kind != SymBuiltin {
		c.errorf(file, e.GetSpan(), "'%s' is not a function", ident.Name)
		return nil
	}
	sig := sym.Type
	if len(e.Args) != len(sig.Params) {
		c.errorf(file, e.GetSpan(), "'%s' expects %d argument(s), found %d", ident.Name, len(sig.Params), len(e.Args))
		return nil
	}
	for i, arg := range e.Args {
		at := c.exprType(sc, arg, file)
		want := sig.Params[i]
		if at == nil || want == KindInvalid {
			continue
		}
		if at.Kind != want {
			c.errorf(file, arg.GetSpan(), "argument %d of '%s' must be %s, found %s", i+1, ident.Name, want, at.Kind)
		}
	}
	if !sig.RetKnown {
		return nil
	}
	if sig.Ret == KindVoid {
		if valueUsed {
			c.errorf(file, e.GetSpan(), "'%s' never returns a value; its result cannot be used", ident.Name)
		}
		return nil
	}
	return &Type{Kind: sig.Ret}
}

// declare adds a top-level symbol to the global scope.
func (c *Checker) declare(sym *Symbol, span ast.Span, file string) {
	c.declareIn(c.global, sym, span, file)
}

// declareIn rejects both duplicates in the same scope and shadowing of any
// enclosing scope, builtins included.
func (c *Checker) declareIn(sc *scope, sym *Symbol, span ast.Span, file string) {
	if _, ok := sc.vars[sym.Name]; ok {
		c.errorf(file, span, "redeclaration of '%s'", sym.Name)
		return
	}
	if prev, _ := sc.lookup(sym.Name); prev != nil {
		c.errorf(file, span, "redeclaration of '%s' in enclosing scope", sym.Name)
		return
	}
	sc.vars[sym.Name] = sym
}

func (c *Checker) errorf(file string, span ast.Span, format string, args ...interface{}) {
	c.errs = append(c.errs, diag.Errorf(diag.Semantic, file, span.Start.Line, span.Start.Col, format, args...))
}
