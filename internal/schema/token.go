package schema

import (
	"fmt"
	"strings"
	"text/scanner"

	"github.com/mickamy/dieselgen/internal/errs"
)

// TokenKind classifies a token tree node.
type TokenKind int

const (
	TokenIdent TokenKind = iota
	TokenPunct
	TokenLiteral
	TokenGroup
)

// Delimiter is the bracket kind of a group token.
type Delimiter int

const (
	DelimNone Delimiter = iota
	DelimParen
	DelimBrace
	DelimBracket
)

// Token is one node of a token tree. Groups own their inner tokens, so a
// macro body is a single Group token.
type Token struct {
	Kind     TokenKind
	Text     string // identifier, punctuation rune or literal source
	Delim    Delimiter
	Children []Token
	Pos      scanner.Position
}

func (t Token) is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) isGroup(d Delimiter) bool {
	return t.Kind == TokenGroup && t.Delim == d
}

func (t Token) describe() string {
	if t.Kind == TokenGroup {
		return [...]string{"", "(...)", "{...}", "[...]"}[t.Delim]
	}
	return t.Text
}

func position(p scanner.Position) string {
	if !p.IsValid() {
		return ""
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

var closers = map[rune]Delimiter{')': DelimParen, '}': DelimBrace, ']': DelimBracket}

var openers = map[rune]Delimiter{'(': DelimParen, '{': DelimBrace, '[': DelimBracket}

// tokenize splits src into token trees. Comments are dropped.
func tokenize(src string) ([]Token, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanRawStrings | scanner.ScanComments | scanner.SkipComments

	var scanErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = errs.NewSchemaError(position(s.Pos()), "", msg)
		}
	}

	type frame struct {
		group  Token
		tokens []Token
	}
	stack := []frame{{}}
	push := func(t Token) {
		top := &stack[len(stack)-1]
		top.tokens = append(top.tokens, t)
	}

	for r := s.Scan(); r != scanner.EOF; r = s.Scan() {
		if scanErr != nil {
			return nil, scanErr
		}
		pos := s.Position
		switch r {
		case scanner.Ident:
			push(Token{Kind: TokenIdent, Text: s.TokenText(), Pos: pos})
		case scanner.Int, scanner.Float, scanner.String, scanner.RawString:
			push(Token{Kind: TokenLiteral, Text: s.TokenText(), Pos: pos})
		case '(', '{', '[':
			stack = append(stack, frame{group: Token{Kind: TokenGroup, Delim: openers[r], Pos: pos}})
		case ')', '}', ']':
			if len(stack) == 1 {
				return nil, errs.NewSchemaError(position(pos), "", fmt.Sprintf("unexpected closing %q", r))
			}
			top := stack[len(stack)-1]
			if top.group.Delim != closers[r] {
				return nil, errs.NewSchemaError(position(pos), "",
					fmt.Sprintf("closing %q does not match %s opened at %s", r, top.group.describe(), position(top.group.Pos)))
			}
			stack = stack[:len(stack)-1]
			g := top.group
			g.Children = top.tokens
			push(g)
		default:
			push(Token{Kind: TokenPunct, Text: string(r), Pos: pos})
		}
	}
	if scanErr != nil {
		return nil, scanErr
	}
	if len(stack) > 1 {
		top := stack[len(stack)-1]
		return nil, errs.NewSchemaError(position(top.group.Pos), "", top.group.describe()+" is never closed")
	}
	return stack[0].tokens, nil
}
