package parser

import (
	"strconv"

	"spl/internal/ast"
	"spl/internal/diag"
	"spl/internal/lexer"
)

type Parser struct {
	lex  *lexer.Lexer
	curr lexer.Token
	path string
	errs []error
}

func New(path, src string) *Parser {
	p := &Parser{lex: lexer.New(path, src), path: path}
	p.next()
	return p
}

// ParseProgram consumes the whole token stream and returns the Program AST,
// or the first lexical/syntax error encountered.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{File: p.path}
	for {
		p.skipTerminators()
		if p.curr.Kind == lexer.TokenEOF {
			break
		}
		stmt := p.parseTopLevel()
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
		if len(p.errs) > 0 {
			return nil, p.errs[0]
		}
	}
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return prog, nil
}

// parseTopLevel is the only production that can produce a FuncDecl.
func (p *Parser) parseTopLevel() ast.Stmt {
	if p.curr.Kind == lexer.TokenFunc {
		return p.parseFuncDecl()
	}
	return p.parseStmt()
}

func (p *Parser) parseFuncDecl() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenFunc)
	nameTok := p.expect(lexer.TokenIdent)
	params := p.parseParamList()
	body := p.parseBlock()
	end := p.curr.Pos
	return &ast.FuncDecl{Name: nameTok.Text, Params: params, Body: body, Span: spanFrom(start, end)}
}

func (p *Parser) parseParamList() []ast.Param {
	p.expect(lexer.TokenLParen)
	var params []ast.Param
	if p.curr.Kind != lexer.TokenRParen {
		for {
			start := p.curr.Pos
			typ := p.parseTypeName()
			nameTok := p.expect(lexer.TokenIdent)
			params = append(params, ast.Param{Type: typ, Name: nameTok.Text, Span: spanFrom(start, p.curr.Pos)})
			if p.curr.Kind != lexer.TokenComma {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokenRParen)
	return params
}

func (p *Parser) parseTypeName() ast.TypeName {
	switch p.curr.Kind {
	case lexer.TokenTypeNumber:
		p.next()
		return ast.TypeNumber
	case lexer.TokenTypeString:
		p.next()
		return ast.TypeString
	case lexer.TokenTypeBool:
		p.next()
		return ast.TypeBool
	default:
		p.errf("expected type name, found %s", p.curr.Kind)
		p.next()
		return ast.TypeNumber
	}
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curr.Kind {
	case lexer.TokenVar:
		return p.parseVarDecl()
	case lexer.TokenConst:
		return p.parseConstDecl()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenLoop:
		return p.parseLoop()
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenImport:
		return p.parseImport()
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenFunc:
		p.errf("function declarations are only allowed at top level")
		p.sync()
		return nil
	case lexer.TokenIdent:
		// Lookahead distinguishes assignment from an expression statement.
		peek, err := p.lex.Peek()
		if err != nil {
			p.errs = append(p.errs, err)
			return nil
		}
		if peek.Kind == lexer.TokenEq {
			return p.parseAssign()
		}
		fallthrough
	default:
		start := p.curr.Pos
		expr := p.parseExpr(0)
		p.terminator()
		return &ast.ExprStmt{Expr: expr, Span: spanFrom(start, p.curr.Pos)}
	}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenVar)
	typ := p.parseTypeName()
	nameTok := p.expect(lexer.TokenIdent)
	var init ast.Expr
	if p.curr.Kind == lexer.TokenEq {
		p.next()
		init = p.parseExpr(0)
	}
	p.terminator()
	return &ast.VarDecl{Name: nameTok.Text, Type: typ, Init: init, Span: spanFrom(start, p.curr.Pos)}
}

func (p *Parser) parseConstDecl() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenConst)
	typ := p.parseTypeName()
	nameTok := p.expect(lexer.TokenIdent)
	var init ast.Expr
	if p.curr.Kind == lexer.TokenEq {
		p.next()
		init = p.parseExpr(0)
	}
	p.terminator()
	return &ast.ConstDecl{Name: nameTok.Text, Type: typ, Init: init, Span: spanFrom(start, p.curr.Pos)}
}

func (p *Parser) parseAssign() ast.Stmt {
	start := p.curr.Pos
	nameTok := p.expect(lexer.TokenIdent)
	p.expect(lexer.TokenEq)
	value := p.parseExpr(0)
	p.terminator()
	return &ast.AssignStmt{Name: nameTok.Text, Value: value, Span: spanFrom(start, p.curr.Pos)}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenIf)
	p.expect(lexer.TokenLParen)
	cond := p.parseExpr(0)
	p.expect(lexer.TokenRParen)
	body := p.parseBlock()
	arms := []ast.IfArm{{Cond: cond, Body: body, Span: spanFrom(start, p.curr.Pos)}}
	var elseBlock *ast.BlockStmt
	for p.curr.Kind == lexer.TokenElse {
		p.next()
		if p.curr.Kind == lexer.TokenIf {
			armStart := p.curr.Pos
			p.next()
			p.expect(lexer.TokenLParen)
			armCond := p.parseExpr(0)
			p.expect(lexer.TokenRParen)
			armBody := p.parseBlock()
			arms = append(arms, ast.IfArm{Cond: armCond, Body: armBody, Span: spanFrom(armStart, p.curr.Pos)})
			continue
		}
		elseBlock = p.parseBlock()
		break
	}
	return &ast.IfStmt{Arms: arms, Else: elseBlock, Span: spanFrom(start, p.curr.Pos)}
}

func (p *Parser) parseLoop() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenLoop)
	p.expect(lexer.TokenLParen)
	cond := p.parseExpr(0)
	p.expect(lexer.TokenRParen)
	body := p.parseBlock()
	return &ast.LoopStmt{Cond: cond, Body: body, Span: spanFrom(start, p.curr.Pos)}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenReturn)
	var value ast.Expr
	if !p.atTerminator() {
		value = p.parseExpr(0)
	}
	p.terminator()
	return &ast.ReturnStmt{Value: value, Span: spanFrom(start, p.curr.Pos)}
}

func (p *Parser) parseImport() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenImport)
	target := p.expect(lexer.TokenString)
	p.terminator()
	return &ast.ImportStmt{Target: target.Text, Span: spanFrom(start, p.curr.Pos)}
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.curr.Pos
	p.expect(lexer.TokenLBrace)
	var stmts []ast.Stmt
	for {
		p.skipTerminators()
		if p.curr.Kind == lexer.TokenRBrace || p.curr.Kind == lexer.TokenEOF {
			break
		}
		if len(p.errs) > 0 {
			break
		}
		stmt := p.parseStmt()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(lexer.TokenRBrace)
	return &ast.BlockStmt{Stmts: stmts, Span: spanFrom(start, p.curr.Pos)}
}

// Binary operator levels, lowest to highest: or, and, equality, relational,
// additive, multiplicative. Unary, #, ^ and call are handled below.
func binaryPrecedence(kind lexer.TokenKind) int {
	switch kind {
	case lexer.TokenOr:
		return 1
	case lexer.TokenAnd:
		return 2
	case lexer.TokenEqEq, lexer.TokenNotEq:
		return 3
	case lexer.TokenLT, lexer.TokenLTE, lexer.TokenGT, lexer.TokenGTE:
		return 4
	case lexer.TokenPlus, lexer.TokenMinus:
		return 5
	case lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent:
		return 6
	default:
		return -1
	}
}

func (p *Parser) parseExpr(precedence int) ast.Expr {
	expr := p.parseUnary()
	for {
		prec := binaryPrecedence(p.curr.Kind)
		if prec < 0 || prec < precedence {
			break
		}
		op := p.curr.Kind.String()
		p.next()
		right := p.parseExpr(prec + 1)
		expr = &ast.BinaryExpr{Op: op, Left: expr, Right: right, Span: spanFromPos(expr.GetSpan().Start, right.GetSpan().End)}
	}
	return expr
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.curr.Kind {
	case lexer.TokenNot, lexer.TokenMinus:
		op := p.curr.Kind.String()
		start := p.curr.Pos
		p.next()
		expr := p.parseUnary()
		return &ast.UnaryExpr{Op: op, Expr: expr, Span: spanFromPos(posFromLex(start), expr.GetSpan().End)}
	}
	return p.parseConcat()
}

func (p *Parser) parseConcat() ast.Expr {
	expr := p.parsePower()
	for p.curr.Kind == lexer.TokenHash {
		p.next()
		right := p.parsePower()
		expr = &ast.BinaryExpr{Op: "#", Left: expr, Right: right, Span: spanFromPos(expr.GetSpan().Start, right.GetSpan().End)}
	}
	return expr
}

// parsePower binds its right operand by recursing into the unary level,
// which makes ^ right-associative.
func (p *Parser) parsePower() ast.Expr {
	expr := p.parsePostfix()
	if p.curr.Kind == lexer.TokenCaret {
		p.next()
		right := p.parseUnary()
		return &ast.BinaryExpr{Op: "^", Left: expr, Right: right, Span: spanFromPos(expr.GetSpan().Start, right.GetSpan().End)}
	}
	return expr
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for p.curr.Kind == lexer.TokenLParen {
		args := p.parseArgs()
		expr = &ast.CallExpr{Callee: expr, Args: args, Span: spanFromPos(expr.GetSpan().Start, posFromLex(p.curr.Pos))}
	}
	return expr
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(lexer.TokenLParen)
	var args []ast.Expr
	if p.curr.Kind != lexer.TokenRParen {
		for {
			args = append(args, p.parseExpr(0))
			if p.curr.Kind != lexer.TokenComma {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokenRParen)
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.curr.Kind {
	case lexer.TokenIdent:
		tok := p.curr
		p.next()
		return &ast.IdentExpr{Name: tok.Text, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenTypeNumber, lexer.TokenTypeString, lexer.TokenTypeBool:
		// The type keywords double as the casting builtins' names in
		// expression position: number("3.5"), string(x), bool(s).
		tok := p.curr
		p.next()
		return &ast.IdentExpr{Name: tok.Text, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenNumber:
		tok := p.curr
		p.next()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.errf("malformed number literal %q", tok.Text)
		}
		return &ast.NumberLit{Value: v, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenString:
		tok := p.curr
		p.next()
		return &ast.StringLit{Value: tok.Text, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenTrue, lexer.TokenFalse:
		tok := p.curr
		p.next()
		return &ast.BoolLit{Value: tok.Kind == lexer.TokenTrue, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenLParen:
		p.next()
		expr := p.parseExpr(0)
		p.expect(lexer.TokenRParen)
		return expr
	default:
		p.errf("expected expression, found %s", p.curr.Kind)
		tok := p.curr
		p.next()
		return &ast.IdentExpr{Name: "", Span: spanFrom(tok.Pos, tok.Pos)}
	}
}

// atTerminator reports whether the current token ends a statement.
func (p *Parser) atTerminator() bool {
	switch p.curr.Kind {
	case lexer.TokenSemicolon, lexer.TokenEOL, lexer.TokenRBrace, lexer.TokenEOF:
		return true
	default:
		return false
	}
}

// terminator consumes the `;` or end-of-line token closing a statement.
// A `}` or EOF also ends the statement but is left for the caller.
func (p *Parser) terminator() {
	switch p.curr.Kind {
	case lexer.TokenSemicolon, lexer.TokenEOL:
		p.next()
	case lexer.TokenRBrace, lexer.TokenEOF:
	default:
		p.errf("expected ';' or end of line, found %s", p.curr.Kind)
		p.sync()
	}
}

func (p *Parser) skipTerminators() {
	for p.curr.Kind == lexer.TokenEOL || p.curr.Kind == lexer.TokenSemicolon {
		p.next()
	}
}

func (p *Parser) expect(kind lexer.TokenKind) lexer.Token {
	if p.curr.Kind != kind {
		p.errf("expected %s, found %s", kind, p.curr.Kind)
		return p.curr
	}
	tok := p.curr
	p.next()
	return tok
}

func (p *Parser) next() {
	tok, err := p.lex.Next()
	if err != nil {
		p.errs = append(p.errs, err)
		p.curr = lexer.Token{Kind: lexer.TokenEOF, File: p.path, Pos: p.curr.Pos}
		return
	}
	p.curr = tok
}

func (p *Parser) errf(format string, args ...interface{}) {
	p.errs = append(p.errs, diag.Errorf(diag.Syntax, p.path, p.curr.Pos.Line, p.curr.Pos.Col, format, args...))
}

func (p *Parser) sync() {
	for p.curr.Kind != lexer.TokenEOF {
		switch p.curr.Kind {
		case lexer.TokenSemicolon, lexer.TokenEOL, lexer.TokenRBrace:
			p.next()
			return
		default:
			p.next()
		}
	}
}

func spanFrom(start, end lexer.Position) ast.Span {
	return ast.Span{Start: ast.Position{Line: start.Line, Col: start.Col}, End: ast.Position{Line: end.Line, Col: end.Col}}
}

func spanFromPos(start, end ast.Position) ast.Span {
	return ast.Span{Start: start, End: end}
}

func posFromLex(pos lexer.Position) ast.Position {
	return ast.Position{Line: pos.Line, Col: pos.Col}
}
