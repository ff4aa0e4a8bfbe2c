package pipeline

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokRedirIn
	tokRedirOut
	tokRedirErr
)

func (k tokenKind) String() string {
	switch k {
	case tokWord:
		return "WORD"
	case tokRedirIn:
		return "REDIR_IN"
	case tokRedirOut:
		return "REDIR_OUT"
	case tokRedirErr:
		return "REDIR_ERR"
	default:
		return fmt.Sprintf("tok(%d)", int(k))
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int // byte offset in the segment
}

func (t token) String() string {
	if t.kind == tokWord {
		return fmt.Sprintf("%d:%s(%s)", t.pos, t.kind, t.text)
	}
	return fmt.Sprintf("%d:%s", t.pos, t.kind)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// isOperatorStart reports whether c ends a word.
func isOperatorStart(c byte) bool {
	return c == '<' || c == '>'
}

// lex splits one pipe segment into words and redirection operators.
// "2>" is an operator only where a word would start, so "a2>b" lexes as
// WORD(a2) REDIR_OUT WORD(b).
func lex(s string) []token {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isSpace(c):
			i++
		case c == '<':
			toks = append(toks, token{kind: tokRedirIn, text: OpRedirectIn, pos: i})
			i++
		case c == '2' && i+1 < len(s) && s[i+1] == '>':
			toks = append(toks, token{kind: tokRedirErr, text: OpRedirectErr, pos: i})
			i += 2
		case c == '>':
			toks = append(toks, token{kind: tokRedirOut, text: OpRedirectOut, pos: i})
			i++
		default:
			start := i
			for i < len(s) && !isSpace(s[i]) && !isOperatorStart(s[i]) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: s[start:i], pos: start})
		}
	}
	return toks
}

// dumpTokens renders a token stream one token per line.
func dumpTokens(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}
