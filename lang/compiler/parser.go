package compiler

import (
	"fmt"

	"github.com/andrewtimmins/oakscript/lang/builtin"
	"github.com/andrewtimmins/oakscript/lang/scanner"
	"github.com/andrewtimmins/oakscript/lang/token"
)

// funcInfo records a hoisted user function's entry address and arity, keyed
// by name in Parser.funcs. Registered the moment its header is parsed (not
// when its body finishes), so a recursive call inside the body resolves
// against its own entry address -- this is what "hoisted to a global
// compile-time symbol table" (the pinned closures decision) buys us without
// a separate resolver pass.
type funcInfo struct {
	addr  uint32
	arity int
}

type loopLabels struct {
	brk  label
	cont label
}

// Parser is a single-pass recursive-descent parser that drives an Emitter
// directly: one token of lookahead, statement dispatch on the current
// token, but no persisted syntax tree or resolver pass. OakScript has no
// closures, so parser+emitter is the whole pipeline (see package compiler's
// doc comment for the full rationale).
type Parser struct {
	toks []scanner.TokenAndValue
	pos  int

	em *Emitter

	funcs         map[string]funcInfo
	curFuncName   string
	inFunction    bool
	locals        map[string]bool
	localConsts   map[string]bool
	globalConsts  map[string]bool
	loopStack     []loopLabels
	tempCounter   int
}

// Parse compiles a complete token stream (as produced by lang/scanner) into
// a Program.
func Parse(toks []scanner.TokenAndValue) (*Program, error) {
	p := &Parser{
		toks:         toks,
		em:           NewEmitter(),
		funcs:        make(map[string]funcInfo),
		globalConsts: make(map[string]bool),
	}
	if err := p.parseBlock(nil); err != nil {
		return nil, err
	}
	if p.cur().Token != token.EOF {
		return nil, p.errorf("unexpected token at top level")
	}
	p.em.Emit(HALT)
	if p.em.UnresolvedLabels() {
		return nil, &EmitError{Pos: p.cur().Value.Pos, Msg: "internal error: unresolved label at end of compilation"}
	}
	return &Program{Code: p.em.Code(), Data: p.em.StringData()}, nil
}

func (p *Parser) cur() scanner.TokenAndValue {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return p.toks[len(p.toks)-1] // EOF sentinel
}

func (p *Parser) peekAt(n int) scanner.TokenAndValue {
	i := p.pos + n
	if i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() scanner.TokenAndValue {
	tv := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tv
}

func (p *Parser) errorf(format string, args ...interface{}) *ParseError {
	tv := p.cur()
	return &ParseError{Pos: tv.Value.Pos, Tok: tv.Token, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(tok token.Token) (scanner.TokenAndValue, error) {
	if p.cur().Token != tok {
		return scanner.TokenAndValue{}, p.errorf("expected %s", tok)
	}
	return p.advance(), nil
}

func (p *Parser) skipSeparators() {
	for p.cur().Token == token.NEWLINE || p.cur().Token == token.SEMI {
		p.advance()
	}
}

func (p *Parser) freshTemp(prefix string) string {
	p.tempCounter++
	return fmt.Sprintf("$%s%d", prefix, p.tempCounter)
}

// isLocal reports whether name resolves against the current function's
// local frame rather than the global table.
func (p *Parser) isLocal(name string) bool {
	return p.inFunction && p.locals[name]
}

func (p *Parser) emitLoad(name string) {
	idx := p.em.DataIndex(name)
	if p.isLocal(name) {
		p.em.EmitU32(LOADLOCAL, idx)
	} else {
		p.em.EmitU32(LOAD, idx)
	}
}

func (p *Parser) emitStore(name string) error {
	if p.isConst(name) {
		return &EmitError{Pos: p.cur().Value.Pos, Msg: fmt.Sprintf("cannot assign to const %q", name)}
	}
	idx := p.em.DataIndex(name)
	if p.isLocal(name) {
		p.em.EmitU32(STORELOCAL, idx)
	} else {
		p.em.EmitU32(STORE, idx)
	}
	return nil
}

func (p *Parser) isConst(name string) bool {
	if p.inFunction {
		return p.localConsts[name]
	}
	return p.globalConsts[name]
}

// ---- top-level block / statement dispatch ----

func (p *Parser) parseBlock(enders map[token.Token]bool) error {
	for {
		p.skipSeparators()
		tok := p.cur().Token
		if tok == token.EOF {
			return nil
		}
		if enders != nil && enders[tok] {
			return nil
		}
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
}

func enderSet(toks ...token.Token) map[token.Token]bool {
	m := make(map[token.Token]bool, len(toks))
	for _, t := range toks {
		m[t] = true
	}
	return m
}

func (p *Parser) parseStatement() error {
	switch p.cur().Token {
	case token.CONST:
		return p.parseConst()
	case token.PRINT:
		return p.parsePrint()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.SWITCH:
		return p.parseSwitch()
	case token.FUNCTION:
		return p.parseFunction()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		return p.parseBreak()
	case token.CONTINUE:
		return p.parseContinue()
	case token.TRY:
		return p.parseTry()
	case token.THROW:
		return p.parseThrow()
	case token.DELETE:
		return p.parseDelete()
	case token.IDENT:
		return p.parseIdentStatement()
	default:
		return p.errorf("unexpected token %s at start of statement", p.cur().Token)
	}
}

func (p *Parser) parseConst() error {
	p.advance() // const
	nameTV, err := p.expect(token.IDENT)
	if err != nil {
		return err
	}
	name := nameTV.Value.Raw
	if p.isConst(name) {
		return &EmitError{Pos: nameTV.Value.Pos, Msg: fmt.Sprintf("duplicate const declaration of %q", name)}
	}
	if _, err := p.expect(token.EQ); err != nil {
		return err
	}
	if err := p.parseExpr(); err != nil {
		return err
	}
	idx := p.em.DataIndex(name)
	if p.inFunction {
		p.locals[name] = true
		p.localConsts[name] = true
		p.em.EmitU32(STORELOCAL, idx)
	} else {
		p.globalConsts[name] = true
		p.em.EmitU32(STOREC, idx)
	}
	return nil
}

func (p *Parser) parsePrint() error {
	p.advance() // print
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.em.Emit(PRINT)
	return nil
}

func (p *Parser) parseThrow() error {
	p.advance() // throw
	if err := p.parseExpr(); err != nil {
		return err
	}
	p.em.Emit(THROW)
	return nil
}

func (p *Parser) parseDelete() error {
	p.advance() // delete
	nameTV, err := p.expect(token.IDENT)
	if err != nil {
		return err
	}
	p.em.EmitU32(DELETE, p.em.DataIndex(nameTV.Value.Raw))
	return nil
}

func (p *Parser) parseBreak() error {
	p.advance()
	if len(p.loopStack) == 0 {
		return &EmitError{Pos: p.cur().Value.Pos, Msg: "break outside a loop"}
	}
	top := p.loopStack[len(p.loopStack)-1]
	p.em.EmitJump(JUMP, top.brk)
	return nil
}

func (p *Parser) parseContinue() error {
	p.advance()
	if len(p.loopStack) == 0 {
		return &EmitError{Pos: p.cur().Value.Pos, Msg: "continue outside a loop"}
	}
	top := p.loopStack[len(p.loopStack)-1]
	p.em.EmitJump(JUMP, top.cont)
	return nil
}

func (p *Parser) parseReturn() error {
	pos := p.cur().Value.Pos
	p.advance()
	if !p.inFunction {
		return &EmitError{Pos: pos, Msg: "return outside a function"}
	}
	switch p.cur().Token {
	case token.NEWLINE, token.SEMI, token.END, token.EOF:
		p.em.Emit(PUSHNIL)
	default:
		if err := p.parseExpr(); err != nil {
			return err
		}
	}
	p.em.EmitByte(RETURN, 1)
	return nil
}

// parseIdentStatement handles every statement that begins with an
// identifier: assignment, compound assignment, increment/decrement, or a
// bare call expression whose result is discarded.
func (p *Parser) parseIdentStatement() error {
	nameTV := p.advance()
	name := nameTV.Value.Raw

	switch p.cur().Token {
	case token.EQ:
		p.advance()
		if err := p.parseExpr(); err != nil {
			return err
		}
		return p.emitStore(name)

	case token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ:
		op := p.cur().Token
		p.advance()
		p.emitLoad(name)
		if err := p.parseExpr(); err != nil {
			return err
		}
		switch op {
		case token.PLUSEQ:
			p.em.Emit(ADD)
		case token.MINUSEQ:
			p.em.Emit(SUB)
		case token.STAREQ:
			p.em.Emit(MUL)
		case token.SLASHEQ:
			p.em.Emit(DIV)
		}
		return p.emitStore(name)

	case token.INC, token.DEC:
		op := p.cur().Token
		p.advance()
		p.emitLoad(name)
		p.em.EmitI64(1)
		if op == token.INC {
			p.em.Emit(ADD)
		} else {
			p.em.Emit(SUB)
		}
		return p.emitStore(name)

	case token.LPAREN:
		if err := p.parseCallFrom(nameTV); err != nil {
			return err
		}
		p.em.Emit(POP)
		return nil

	default:
		return &ParseError{Pos: nameTV.Value.Pos, Tok: p.cur().Token, Msg: "expected assignment or call"}
	}
}

// ---- control flow ----

func (p *Parser) parseIf() error {
	p.advance() // if
	if err := p.parseExpr(); err != nil {
		return err
	}
	if _, err := p.expect(token.THEN); err != nil {
		return err
	}
	lelse := p.em.NewLabel()
	p.em.EmitJump(JUMPF, lelse)
	if err := p.parseBlock(enderSet(token.ELSE, token.END)); err != nil {
		return err
	}
	if p.cur().Token == token.ELSE {
		p.advance()
		lend := p.em.NewLabel()
		p.em.EmitJump(JUMP, lend)
		p.em.Bind(lelse)
		if err := p.parseBlock(enderSet(token.END)); err != nil {
			return err
		}
		p.em.Bind(lend)
	} else {
		p.em.Bind(lelse)
	}
	_, err := p.expect(token.END)
	return err
}

func (p *Parser) parseWhile() error {
	p.advance() // while
	ltop := p.em.NewLabel()
	p.em.Bind(ltop)
	if err := p.parseExpr(); err != nil {
		return err
	}
	lend := p.em.NewLabel()
	p.em.EmitJump(JUMPF, lend)
	if p.cur().Token == token.DO {
		p.advance()
	}
	p.loopStack = append(p.loopStack, loopLabels{brk: lend, cont: ltop})
	err := p.parseBlock(enderSet(token.END))
	p.loopStack = p.loopStack[:len(p.loopStack)-1]
	if err != nil {
		return err
	}
	p.em.EmitJump(JUMP, ltop)
	p.em.Bind(lend)
	_, err = p.expect(token.END)
	return err
}

// parseFor handles both `for i = a to b [step s] do? ... end` and
// `for i in a..b do? ... end`: the `in` form is the `=/to` form with an
// implicit step of 1, so both lower through emitCountedLoop.
func (p *Parser) parseFor() error {
	p.advance() // for
	nameTV, err := p.expect(token.IDENT)
	if err != nil {
		return err
	}
	name := nameTV.Value.Raw
	if p.inFunction {
		p.locals[name] = true
	}

	switch p.cur().Token {
	case token.EQ:
		p.advance()
		if err := p.parseExpr(); err != nil {
			return err
		}
		if err := p.emitStore(name); err != nil {
			return err
		}
		if _, err := p.expect(token.TO); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		boundName := p.freshTemp("to")
		if p.inFunction {
			p.locals[boundName] = true
		}
		if err := p.emitStore(boundName); err != nil {
			return err
		}
		stepName := p.freshTemp("step")
		if p.inFunction {
			p.locals[stepName] = true
		}
		if p.cur().Token == token.STEP {
			p.advance()
			if err := p.parseExpr(); err != nil {
				return err
			}
		} else {
			p.em.EmitI64(1)
		}
		if err := p.emitStore(stepName); err != nil {
			return err
		}
		return p.emitCountedLoop(name, boundName, stepName)

	case token.IN:
		p.advance()
		if err := p.parseExpr(); err != nil {
			return err
		}
		if err := p.emitStore(name); err != nil {
			return err
		}
		if _, err := p.expect(token.DOTDOT); err != nil {
			return err
		}
		if err := p.parseExpr(); err != nil {
			return err
		}
		boundName := p.freshTemp("to")
		if p.inFunction {
			p.locals[boundName] = true
		}
		if err := p.emitStore(boundName); err != nil {
			return err
		}
		stepName := p.freshTemp("step")
		if p.inFunction {
			p.locals[stepName] = true
		}
		p.em.EmitI64(1)
		if err := p.emitStore(stepName); err != nil {
			return err
		}
		return p.emitCountedLoop(name, boundName, stepName)

	default:
		return p.errorf("expected '=' or 'in' after for-loop variable")
	}
}

// emitCountedLoop lowers `i = a; while (s >= 0 ? i <= b : i >= b) { body; i
// += s }`, with b and s already stored into the named
// hidden locals/globals boundName and stepName.
func (p *Parser) emitCountedLoop(name, boundName, stepName string) error {
	lcheck := p.em.NewLabel()
	p.em.Bind(lcheck)

	lneg := p.em.NewLabel()
	ldone := p.em.NewLabel()
	p.emitLoad(stepName)
	p.em.EmitI64(0)
	p.em.Emit(GE)
	p.em.EmitJump(JUMPF, lneg)
	p.emitLoad(name)
	p.emitLoad(boundName)
	p.em.Emit(LE)
	p.em.EmitJump(JUMP, ldone)
	p.em.Bind(lneg)
	p.emitLoad(name)
	p.emitLoad(boundName)
	p.em.Emit(GE)
	p.em.Bind(ldone)

	lend := p.em.NewLabel()
	p.em.EmitJump(JUMPF, lend)

	if p.cur().Token == token.DO {
		p.advance()
	}
	p.loopStack = append(p.loopStack, loopLabels{brk: lend, cont: lcheck})
	err := p.parseBlock(enderSet(token.END))
	p.loopStack = p.loopStack[:len(p.loopStack)-1]
	if err != nil {
		return err
	}

	p.emitLoad(name)
	p.emitLoad(stepName)
	p.em.Emit(ADD)
	if err := p.emitStore(name); err != nil {
		return err
	}
	p.em.EmitJump(JUMP, lcheck)
	p.em.Bind(lend)
	_, err = p.expect(token.END)
	return err
}

func (p *Parser) parseSwitch() error {
	p.advance() // switch
	if err := p.parseExpr(); err != nil {
		return err
	}
	scrutinee := p.freshTemp("switch")
	if p.inFunction {
		p.locals[scrutinee] = true
	}
	if err := p.emitStore(scrutinee); err != nil {
		return err
	}
	p.skipSeparators()

	lend := p.em.NewLabel()
	for p.cur().Token == token.CASE {
		p.advance()
		p.emitLoad(scrutinee)
		if err := p.parseExpr(); err != nil {
			return err
		}
		p.em.Emit(EQ)
		lnext := p.em.NewLabel()
		p.em.EmitJump(JUMPF, lnext)
		if err := p.parseBlock(enderSet(token.CASE, token.DEFAULT, token.END)); err != nil {
			return err
		}
		p.em.EmitJump(JUMP, lend)
		p.em.Bind(lnext)
	}
	if p.cur().Token == token.DEFAULT {
		p.advance()
		if err := p.parseBlock(enderSet(token.END)); err != nil {
			return err
		}
	}
	p.em.Bind(lend)
	_, err := p.expect(token.END)
	return err
}

// parseFunction compiles `function name(params) ... [return expr] end`.
// Functions are hoisted: the header registers name -> entry address before
// the body is compiled, so a recursive call inside the body resolves
// immediately.
func (p *Parser) parseFunction() error {
	pos := p.cur().Value.Pos
	p.advance() // function
	if p.inFunction {
		return &EmitError{Pos: pos, Msg: "nested function declarations are not supported"}
	}
	nameTV, err := p.expect(token.IDENT)
	if err != nil {
		return err
	}
	name := nameTV.Value.Raw
	if _, ok := p.funcs[name]; ok {
		return &EmitError{Pos: nameTV.Value.Pos, Msg: fmt.Sprintf("function %q already declared", name)}
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return err
	}
	var params []string
	for p.cur().Token != token.RPAREN {
		pTV, err := p.expect(token.IDENT)
		if err != nil {
			return err
		}
		params = append(params, pTV.Value.Raw)
		if p.cur().Token == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return err
	}

	bodyLen := bodyEnd(p.toks[p.pos:])
	bodyToks := p.toks[p.pos : p.pos+bodyLen]
	locals := collectLocals(params, bodyToks)

	lskip := p.em.NewLabel()
	p.em.EmitJump(JUMP, lskip)
	addr := uint32(p.em.Offset())
	p.funcs[name] = funcInfo{addr: addr, arity: len(params)}

	prevLocals, prevConsts, prevInFunc, prevName := p.locals, p.localConsts, p.inFunction, p.curFuncName
	p.locals = locals
	p.localConsts = make(map[string]bool)
	p.inFunction = true
	p.curFuncName = name

	for i := len(params) - 1; i >= 0; i-- {
		p.em.EmitU32(STORELOCAL, p.em.DataIndex(params[i]))
	}

	err = p.parseBlock(enderSet(token.END))

	p.locals, p.localConsts, p.inFunction, p.curFuncName = prevLocals, prevConsts, prevInFunc, prevName
	if err != nil {
		return err
	}

	// implicit `return nil` if control falls off the end of the body
	p.em.Emit(PUSHNIL)
	p.em.EmitByte(RETURN, 1)

	p.em.Bind(lskip)
	_, err = p.expect(token.END)
	return err
}

// parseTry compiles `try ... [catch [name] ...] [finally ...] end`. The
// finally block, when present, is cloned onto both the normal-exit path and
// the exception path explicit guidance ("the finally
// block is cloned into the normal exit path and into the unwind path").
func (p *Parser) parseTry() error {
	p.advance() // try
	lcatch := p.em.NewLabel()
	p.em.EmitJump(PUSHH, lcatch)
	if err := p.parseBlock(enderSet(token.CATCH, token.FINALLY, token.END)); err != nil {
		return err
	}
	p.em.Emit(POPH)

	lnormal := p.em.NewLabel()
	p.em.EmitJump(JUMP, lnormal)

	p.em.Bind(lcatch)
	hasCatch := p.cur().Token == token.CATCH
	if hasCatch {
		p.advance()
		catchName := ""
		if p.cur().Token == token.IDENT {
			catchName = p.cur().Value.Raw
			p.advance()
			if p.inFunction {
				p.locals[catchName] = true
			}
		}
		if catchName != "" {
			if err := p.emitStore(catchName); err != nil {
				return err
			}
		} else {
			p.em.Emit(POP)
		}
		if err := p.parseBlock(enderSet(token.FINALLY, token.END)); err != nil {
			return err
		}
	}

	hasFinally := p.cur().Token == token.FINALLY
	var finallyStart int
	if hasFinally {
		p.advance()
		finallyStart = p.pos
	}

	if hasFinally {
		if _, err := p.emitFinallyClone(finallyStart); err != nil {
			return err
		}
	}
	if !hasCatch {
		p.em.Emit(THROW)
	} else {
		lend := p.em.NewLabel()
		p.em.EmitJump(JUMP, lend)
		p.em.Bind(lnormal)
		var end int
		var err error
		if hasFinally {
			end, err = p.emitFinallyClone(finallyStart)
			if err != nil {
				return err
			}
			p.pos = end
		}
		p.em.Bind(lend)
		_, err = p.expect(token.END)
		return err
	}

	p.em.Bind(lnormal)
	var end int
	var err error
	if hasFinally {
		end, err = p.emitFinallyClone(finallyStart)
		if err != nil {
			return err
		}
		p.pos = end
	}
	_, err = p.expect(token.END)
	return err
}

// emitFinallyClone parses and emits one copy of the finally block starting
// at token index start, restoring the parser position afterward so the
// caller can replay it again for the second path. It returns the index of
// the END token that closes the enclosing try.
func (p *Parser) emitFinallyClone(start int) (int, error) {
	saved := p.pos
	p.pos = start
	if err := p.parseBlock(enderSet(token.END)); err != nil {
		return 0, err
	}
	end := p.pos
	p.pos = saved
	return end, nil
}

// ---- expressions ----

func (p *Parser) parseExpr() error { return p.parseOr() }

// parseOr implements short-circuit "or": the left operand is duplicated and
// tested; if it is truthy the jump skips the right operand entirely,
// leaving the left operand's own value as the result, otherwise the
// duplicate is discarded and the right operand is evaluated in its place.
func (p *Parser) parseOr() error {
	if err := p.parseAnd(); err != nil {
		return err
	}
	for p.cur().Token == token.OR {
		p.advance()
		p.em.Emit(DUP)
		lend := p.em.NewLabel()
		p.em.EmitJump(JUMPT, lend)
		p.em.Emit(POP)
		if err := p.parseAnd(); err != nil {
			return err
		}
		p.em.Bind(lend)
	}
	return nil
}

// parseAnd implements short-circuit "and": the left operand is duplicated
// and tested; if it is falsy the jump skips the right operand entirely,
// leaving the left operand's own value as the result, otherwise the
// duplicate is discarded and the right operand is evaluated in its place.
func (p *Parser) parseAnd() error {
	if err := p.parseNot(); err != nil {
		return err
	}
	for p.cur().Token == token.AND {
		p.advance()
		p.em.Emit(DUP)
		lend := p.em.NewLabel()
		p.em.EmitJump(JUMPF, lend)
		p.em.Emit(POP)
		if err := p.parseNot(); err != nil {
			return err
		}
		p.em.Bind(lend)
	}
	return nil
}

func (p *Parser) parseNot() error {
	if p.cur().Token == token.NOT {
		p.advance()
		if err := p.parseNot(); err != nil {
			return err
		}
		p.em.Emit(NOT)
		return nil
	}
	return p.parseEquality()
}

func (p *Parser) parseEquality() error {
	if err := p.parseRelational(); err != nil {
		return err
	}
	for p.cur().Token == token.EQEQ || p.cur().Token == token.NEQ {
		op := p.cur().Token
		p.advance()
		if err := p.parseRelational(); err != nil {
			return err
		}
		if op == token.EQEQ {
			p.em.Emit(EQ)
		} else {
			p.em.Emit(NE)
		}
	}
	return nil
}

func (p *Parser) parseRelational() error {
	if err := p.parseAdditive(); err != nil {
		return err
	}
	for {
		switch p.cur().Token {
		case token.LT:
			p.advance()
			if err := p.parseAdditive(); err != nil {
				return err
			}
			p.em.Emit(LT)
		case token.LE:
			p.advance()
			if err := p.parseAdditive(); err != nil {
				return err
			}
			p.em.Emit(LE)
		case token.GT:
			p.advance()
			if err := p.parseAdditive(); err != nil {
				return err
			}
			p.em.Emit(GT)
		case token.GE:
			p.advance()
			if err := p.parseAdditive(); err != nil {
				return err
			}
			p.em.Emit(GE)
		default:
			return nil
		}
	}
}

func (p *Parser) parseAdditive() error {
	if err := p.parseMultiplicative(); err != nil {
		return err
	}
	for p.cur().Token == token.PLUS || p.cur().Token == token.MINUS {
		op := p.cur().Token
		p.advance()
		if err := p.parseMultiplicative(); err != nil {
			return err
		}
		if op == token.PLUS {
			p.em.Emit(ADD)
		} else {
			p.em.Emit(SUB)
		}
	}
	return nil
}

func (p *Parser) parseMultiplicative() error {
	if err := p.parseUnary(); err != nil {
		return err
	}
	for {
		switch p.cur().Token {
		case token.STAR:
			p.advance()
			if err := p.parseUnary(); err != nil {
				return err
			}
			p.em.Emit(MUL)
		case token.SLASH:
			p.advance()
			if err := p.parseUnary(); err != nil {
				return err
			}
			p.em.Emit(DIV)
		case token.PERCENT:
			p.advance()
			if err := p.parseUnary(); err != nil {
				return err
			}
			p.em.Emit(MOD)
		default:
			return nil
		}
	}
}

// parseUnary handles prefix "-" and "+". Prefix/postfix "++"/"--" as
// expression operators are intentionally not supported: only the statement
// form `name++` is, avoiding an lvalue-in-expression mechanism the
// language's end-to-end scenarios never exercise.
func (p *Parser) parseUnary() error {
	switch p.cur().Token {
	case token.MINUS:
		p.advance()
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.em.Emit(NEG)
		return nil
	case token.PLUS:
		p.advance()
		return p.parseUnary()
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() error {
	if err := p.parsePrimary(); err != nil {
		return err
	}
	for p.cur().Token == token.LBRACKET {
		p.advance()
		if err := p.parseExpr(); err != nil {
			return err
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return err
		}
		p.em.Emit(INDEX)
	}
	return nil
}

func (p *Parser) parsePrimary() error {
	tv := p.cur()
	switch tv.Token {
	case token.INT:
		p.advance()
		p.em.EmitI64(tv.Value.Int)
		return nil
	case token.FLOAT:
		p.advance()
		p.em.EmitF64(tv.Value.Float)
		return nil
	case token.STRING:
		p.advance()
		p.em.EmitU32(PUSHSTR, p.em.DataIndex(tv.Value.Str))
		return nil
	case token.TRUE:
		p.advance()
		p.em.EmitByte(PUSHB, 1)
		return nil
	case token.FALSE:
		p.advance()
		p.em.EmitByte(PUSHB, 0)
		return nil
	case token.LPAREN:
		p.advance()
		if err := p.parseExpr(); err != nil {
			return err
		}
		_, err := p.expect(token.RPAREN)
		return err
	case token.IDENT:
		p.advance()
		if p.cur().Token == token.LPAREN {
			return p.parseCallFrom(tv)
		}
		p.emitLoad(tv.Value.Raw)
		return nil
	default:
		return p.errorf("unexpected token %s in expression", tv.Token)
	}
}

// parseCallFrom emits a call to the function named by nameTV, which has
// already been consumed; the current token is the call's opening '('.
func (p *Parser) parseCallFrom(nameTV scanner.TokenAndValue) error {
	name := nameTV.Value.Raw
	p.advance() // (
	var argc int
	for p.cur().Token != token.RPAREN {
		if err := p.parseExpr(); err != nil {
			return err
		}
		argc++
		if p.cur().Token == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return err
	}

	if fn, ok := p.funcs[name]; ok {
		if argc != fn.arity {
			return &EmitError{Pos: nameTV.Value.Pos, Msg: fmt.Sprintf("function %q expects %d argument(s), got %d", name, fn.arity, argc)}
		}
		p.em.EmitCallUser(fn.addr, byte(argc))
		return nil
	}
	if spec, ok := builtin.Lookup(name); ok {
		// Arity is validated by the VM at call time, not here.
		p.em.EmitCall(spec.ID, byte(argc))
		return nil
	}
	return &EmitError{Pos: nameTV.Value.Pos, Msg: fmt.Sprintf("undefined function %q", name)}
}
