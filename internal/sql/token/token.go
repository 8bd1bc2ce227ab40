// Package token splits raw statement text into tokens for the statement
// parsers. Identifiers, keywords and numbers accumulate as free text;
// '(' ')' ',' ';' are always their own token; whitespace separates without
// being emitted; quoted spans become literal tokens with the quotes consumed
// and no escape processing.
package token

import (
	"github.com/tuannm99/cellstore/internal/dberr"
)

// Token is one lexeme. Quoted marks literals that came from a quoted span,
// so 'x' can be told apart from the bare identifier x.
type Token struct {
	Text   string
	Quoted bool
}

// Tokenize splits one or more statements into tokens. Malformed quoting is a
// CriticalError: the tokenizer never returns a partial token list.
func Tokenize(text string) (tokens []Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			tokens = nil
			err = dberr.Critical("tokenizer: %v", r)
		}
	}()

	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, Token{Text: string(cur)})
			cur = cur[:0]
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"':
			flush()
			q := r
			j := i + 1
			for j < len(runes) && runes[j] != q {
				j++
			}
			if j >= len(runes) {
				return nil, dberr.Critical("tokenizer: unterminated %c-quoted literal", q)
			}
			tokens = append(tokens, Token{Text: string(runes[i+1 : j]), Quoted: true})
			i = j
		case r == '(' || r == ')' || r == ',' || r == ';':
			flush()
			tokens = append(tokens, Token{Text: string(r)})
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return tokens, nil
}
