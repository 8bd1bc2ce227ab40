package token

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/cellstore/internal/dberr"
)

func texts(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestTokenize_SeparatorsAndWhitespace(t *testing.T) {
	toks, err := Tokenize("CREATE TABLE m.t (id INT,\n  v VARCHAR);")
	require.NoError(t, err)
	require.Equal(t,
		[]string{"CREATE", "TABLE", "m.t", "(", "id", "INT", ",", "v", "VARCHAR", ")", ";"},
		texts(toks))
}

func TestTokenize_QuotedSpans(t *testing.T) {
	toks, err := Tokenize(`INSERT ('eu west', "x")`)
	require.NoError(t, err)
	require.Equal(t, []string{"INSERT", "(", "eu west", ",", "x", ")"}, texts(toks))
	require.True(t, toks[2].Quoted)
	require.True(t, toks[4].Quoted)
	require.False(t, toks[0].Quoted)
}

func TestTokenize_EmptyQuotedLiteral(t *testing.T) {
	toks, err := Tokenize("x ''")
	require.NoError(t, err)
	require.Len(t, toks, 2)
	require.Equal(t, "", toks[1].Text)
	require.True(t, toks[1].Quoted)
}

func TestTokenize_UnterminatedQuote(t *testing.T) {
	_, err := Tokenize("SELECT 'oops")
	require.Error(t, err)
	require.True(t, errors.Is(err, dberr.ErrCritical))
}

func TestTokenize_Empty(t *testing.T) {
	toks, err := Tokenize("   \n\t ")
	require.NoError(t, err)
	require.Empty(t, toks)
}
