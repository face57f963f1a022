// Package skeleton renders the API surface of a parsed Python file:
// signatures, annotations, decorators, docstring summaries and a digest of
// what each function returns, with bodies elided.
package skeleton

import (
	"fmt"
	"strings"

	"github.com/simonhull/magpie/pkg/pysyntax"
)

const (
	// MaxReturnLen is the longest return expression kept verbatim.
	MaxReturnLen = 50
	truncatedLen = MaxReturnLen - 3

	indentUnit = "    "
)

// Render returns the skeleton of mod. filename is used for the header only.
func Render(mod *pysyntax.Module, filename string) string {
	lines := make([]string, 0, 1+len(mod.Constants)+len(mod.Decls))
	lines = append(lines, "# SKELETON: "+filename)
	lines = append(lines, mod.Constants...)
	for _, d := range mod.Decls {
		lines = append(lines, Decl(d, 0))
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderError returns the block emitted in place of a skeleton for a
// file that failed to parse.
func RenderError(filename string, err error) string {
	return fmt.Sprintf("# SYNTAX ERROR in %s: %v\n", filename, err)
}

// Decl renders one declaration at the given nesting level.
func Decl(d *pysyntax.Decl, level int) string {
	if d.IsFunction() {
		return function(d, level)
	}
	return class(d, level)
}

func function(d *pysyntax.Decl, level int) string {
	prefix := strings.Repeat(indentUnit, level)
	lines := decorators(d, prefix)

	kw := "def"
	if d.Kind == pysyntax.AsyncFunction {
		kw = "async def"
	}
	header := fmt.Sprintf("%s%s %s(%s)", prefix, kw, d.Name, d.Params)
	if d.Returns != "" {
		header += " -> " + d.Returns
	}
	lines = append(lines, header+":")

	if d.Doc != "" {
		lines = append(lines, prefix+indentUnit+docLine(d.Doc))
	}

	body := prefix + indentUnit + "..."
	if digest := ReturnDigest(d.ReturnExprs); digest != "" {
		body += "; return " + digest
	}
	lines = append(lines, body)

	return strings.Join(lines, "\n") + "\n"
}

func class(d *pysyntax.Decl, level int) string {
	prefix := strings.Repeat(indentUnit, level)
	lines := decorators(d, prefix)

	if d.Bases != "" {
		lines = append(lines, fmt.Sprintf("%sclass %s(%s):", prefix, d.Name, d.Bases))
	} else {
		lines = append(lines, fmt.Sprintf("%sclass %s:", prefix, d.Name))
	}

	if d.Doc != "" {
		lines = append(lines, prefix+indentUnit+docLine(d.Doc))
	}

	members := 0
	for _, f := range d.Fields {
		lines = append(lines, prefix+indentUnit+f)
		members++
	}
	for _, m := range d.Methods() {
		lines = append(lines, Decl(m, level+1))
		members++
	}
	for _, c := range d.Classes() {
		lines = append(lines, Decl(c, level+1))
		members++
	}

	if members == 0 && d.Doc == "" {
		lines = append(lines, prefix+indentUnit+"pass")
	}

	return strings.Join(lines, "\n")
}

func decorators(d *pysyntax.Decl, prefix string) []string {
	lines := make([]string, 0, len(d.Decorators)+3)
	for _, dec := range d.Decorators {
		lines = append(lines, prefix+"@"+dec)
	}
	return lines
}

// docLine keeps the first line of a docstring, marking elided lines.
func docLine(doc string) string {
	first, _, multi := strings.Cut(doc, "\n")
	if multi {
		return `"""` + first + ` ..."""`
	}
	return `"""` + doc + `"""`
}

// ReturnDigest summarizes return expressions: each is cut to MaxReturnLen
// runes, duplicates are dropped keeping the first occurrence, and the rest
// are joined with " | ".
func ReturnDigest(exprs []string) string {
	if len(exprs) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(exprs))
	kept := make([]string, 0, len(exprs))
	for _, e := range exprs {
		e = Truncate(e)
		if seen[e] {
			continue
		}
		seen[e] = true
		kept = append(kept, e)
	}
	return strings.Join(kept, " | ")
}

// Truncate shortens s to 47 runes plus "..." when it is longer than
// MaxReturnLen runes.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxReturnLen {
		return s
	}
	return string(r[:truncatedLen]) + "..."
}
