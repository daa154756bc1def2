// Package langexec is a small, deterministic interpreter for the
// arithmetic/function-declaration/conditional/return subset of C-like
// and JS-like syntax spec.md §8's end-to-end scenarios exercise. It is
// not a real language front-end — it exists so the in-process reference
// back-ends (wasm, v8isolate, ebpf) can compile and execute the fixture
// languages used in this module's tests without shelling out to a real
// wazero/V8/BPF toolchain. Real engines plug in at the Runner/Backend
// seam documented in each reference back-end's package doc.
package langexec

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokKeyword
	tokPunct
	tokOp
)

type token struct {
	kind tokenKind
	text string
}

var keywords = map[string]bool{
	"function": true, "def": true, "fn": true,
	"return": true, "if": true, "else": true, "while": true,
	"true": true, "false": true,
}

// multiCharOps must be checked before single-char operators.
var multiCharOps = []string{"<=", ">=", "==", "!=", "&&", "||"}

func lex(code string) ([]token, error) {
	var toks []token
	i := 0
	n := len(code)

	for i < n {
		c := code[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < n && (code[j] >= '0' && code[j] <= '9' || code[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, code[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(code[j]) {
				j++
			}
			word := code[i:j]
			if keywords[word] {
				toks = append(toks, token{tokKeyword, word})
			} else {
				toks = append(toks, token{tokIdent, word})
			}
			i = j
		default:
			matched := false
			for _, op := range multiCharOps {
				if strings.HasPrefix(code[i:], op) {
					toks = append(toks, token{tokOp, op})
					i += len(op)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			switch c {
			case '(', ')', '{', '}', ',', ';', ':', '?':
				toks = append(toks, token{tokPunct, string(c)})
				i++
			case '+', '-', '*', '/', '%', '<', '>', '!', '=':
				toks = append(toks, token{tokOp, string(c)})
				i++
			default:
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
