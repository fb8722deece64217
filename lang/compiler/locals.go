package compiler

import "github.com/andrewtimmins/oakscript/lang/scanner"
import "github.com/andrewtimmins/oakscript/lang/token"

// bodyEnd returns the index, relative to toks, of the END token that closes
// the block whose opener (an IF/WHILE/FOR/SWITCH/FUNCTION/TRY header) the
// caller has already consumed; toks starts inside that block. Every OakScript block is
// closed with `end`, so a single depth counter over the
// opener keywords suffices; no separate bracket-matching is needed.
func bodyEnd(toks []scanner.TokenAndValue) int {
	depth := 1
	for i, tv := range toks {
		switch tv.Token {
		case token.IF, token.WHILE, token.FOR, token.SWITCH, token.FUNCTION, token.TRY:
			depth++
		case token.END:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

// collectLocals scans a function body's token range for every name used as
// an assignment target -- plain assignment, compound assignment, increment/
// decrement, a `for` loop variable, a `catch` binding, or a `const`
// declaration -- and returns the set of names that must resolve to the
// function's local frame rather than the global table. This is a flat
// single pass over already-scanned tokens (not a second parse, and no
// persisted tree), run once per function before its body is emitted, so
// that LOAD/STORE vs LOADLOCAL/STORELOCAL can be chosen correctly the first
// and only time each statement is emitted.
func collectLocals(params []string, toks []scanner.TokenAndValue) map[string]bool {
	locals := make(map[string]bool, len(params))
	for _, p := range params {
		locals[p] = true
	}

	isAssignOp := func(t token.Token) bool {
		switch t {
		case token.EQ, token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ, token.INC, token.DEC:
			return true
		default:
			return false
		}
	}

	for i := 0; i < len(toks); i++ {
		tv := toks[i]
		switch tv.Token {
		case token.IDENT:
			if i+1 < len(toks) && isAssignOp(toks[i+1].Token) {
				locals[tv.Value.Raw] = true
			}
		case token.CONST:
			if i+1 < len(toks) && toks[i+1].Token == token.IDENT {
				locals[toks[i+1].Value.Raw] = true
			}
		case token.FOR:
			if i+1 < len(toks) && toks[i+1].Token == token.IDENT {
				locals[toks[i+1].Value.Raw] = true
			}
		case token.CATCH:
			if i+1 < len(toks) && toks[i+1].Token == token.IDENT {
				locals[toks[i+1].Value.Raw] = true
			}
		}
	}
	return locals
}
