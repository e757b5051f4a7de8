package ui

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
)

// highlightDiff renders unified-diff text with ANSI colors. Any tokenizer or
// formatter failure falls back to the plain text.
func highlightDiff(src string) string {
	lexer := lexers.Get("diff")
	if lexer == nil {
		return src
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, src)
	if err != nil {
		return src
	}
	var buf strings.Builder
	if err := formatters.TTY256.Format(&buf, chromastyles.Get("native"), it); err != nil {
		return src
	}
	return buf.String()
}
