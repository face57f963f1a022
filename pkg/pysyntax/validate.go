package pysyntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// validate reports constructs the grammar accepts but Python 3 rejects:
// Python 2 statements and literals, misordered parameters and call
// arguments, and blocks whose indentation does not line up. The earliest
// problem in the file wins.
func validate(root *sitter.Node, src []byte) error {
	v := &validator{src: src}
	v.visit(root)
	if v.err == nil {
		return nil
	}
	return v.err
}

type validator struct {
	src []byte
	err *SyntaxError
}

func (v *validator) fail(n *sitter.Node, msg string) {
	pt := n.StartPoint()
	line, col := int(pt.Row)+1, int(pt.Column)+1
	if v.err != nil && (v.err.Line < line || v.err.Line == line && v.err.Column <= col) {
		return
	}
	v.err = &SyntaxError{Line: line, Column: col, Msg: msg}
}

func (v *validator) visit(n *sitter.Node) {
	switch n.Type() {
	case "print_statement":
		// `print >>f, x` is still a valid expression statement in Python 3.
		if !hasChild(n, "chevron") {
			v.fail(n, "missing parentheses in call to 'print'")
		}
	case "exec_statement":
		v.fail(n, "missing parentheses in call to 'exec'")
	case "raise_statement":
		for _, c := range namedChildren(n) {
			if c.Type() == "expression_list" {
				v.fail(c, "invalid syntax")
			}
		}
	case "except_clause":
		v.token(n, ",", "multiple exception types must be parenthesized")
	case "comparison_operator":
		v.token(n, "<>", "invalid syntax")
	case "integer":
		if msg := integerError(n.Content(v.src)); msg != "" {
			v.fail(n, msg)
		}
	case "parameters", "lambda_parameters":
		v.params(n)
	case "argument_list":
		v.arguments(n)
	case "module":
		v.module(n)
	case "block":
		v.block(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		v.visit(n.Child(i))
	}
}

// token fails on a direct anonymous child of n spelled tok.
func (v *validator) token(n *sitter.Node, tok, msg string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == tok {
			v.fail(c, msg)
			return
		}
	}
}

func hasChild(n *sitter.Node, kind string) bool {
	for _, c := range namedChildren(n) {
		if c.Type() == kind {
			return true
		}
	}
	return false
}

func integerError(lit string) string {
	if strings.HasSuffix(lit, "l") || strings.HasSuffix(lit, "L") {
		return "invalid decimal literal"
	}
	digits := strings.ReplaceAll(lit, "_", "")
	if len(digits) > 1 && digits[0] == '0' &&
		strings.Trim(digits, "0123456789") == "" && strings.Trim(digits, "0") != "" {
		return "leading zeros in decimal integer literals are not permitted; use an 0o prefix for octal integers"
	}
	return ""
}

func (v *validator) params(n *sitter.Node) {
	seenDefault, starred := false, false
	for _, p := range namedChildren(n) {
		kind := p.Type()
		if kind == "typed_parameter" {
			if inner := firstNamed(p); inner != nil && strings.HasSuffix(inner.Type(), "splat_pattern") {
				kind = inner.Type()
			}
		}
		switch kind {
		case "default_parameter", "typed_default_parameter":
			seenDefault = true
		case "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator":
			starred = true
		case "positional_separator":
		case "tuple_pattern":
			v.fail(p, "sublist parameters are not supported")
		default:
			if seenDefault && !starred {
				v.fail(p, "parameter without a default follows parameter with a default")
			}
		}
	}
}

func (v *validator) arguments(n *sitter.Node) {
	keyword, dictSplat := false, false
	for _, a := range namedChildren(n) {
		switch a.Type() {
		case "keyword_argument":
			keyword = true
		case "dictionary_splat":
			dictSplat = true
		case "list_splat":
			if dictSplat {
				v.fail(a, "iterable argument unpacking follows keyword argument unpacking")
			}
		default:
			switch {
			case dictSplat:
				v.fail(a, "positional argument follows keyword argument unpacking")
			case keyword:
				v.fail(a, "positional argument follows keyword argument")
			}
		}
	}
}

// module requires every statement that opens a line to start in column 0.
func (v *validator) module(n *sitter.Node) {
	for _, s := range namedChildren(n) {
		if v.leading(s) && s.StartPoint().Column != 0 {
			v.fail(s, "unexpected indent")
		}
	}
}

// block requires a non-empty body whose line-opening statements share one
// column, deeper than the line of the header that owns the block.
func (v *validator) block(n *sitter.Node) {
	stmts := namedChildren(n)
	if len(stmts) == 0 {
		v.fail(n, "expected an indented block")
		return
	}
	outer := -1
	if p := n.Parent(); p != nil {
		outer = v.indent(p)
	}
	want := -1
	for _, s := range stmts {
		if !v.leading(s) {
			continue
		}
		col := int(s.StartPoint().Column)
		switch {
		case want < 0:
			if col <= outer {
				v.fail(s, "expected an indented block")
				return
			}
			want = col
		case col > want:
			v.fail(s, "unexpected indent")
		case col < want:
			v.fail(s, "unindent does not match any outer indentation level")
		}
	}
}

// leading reports whether n is the first token on its physical line and
// that line is not the continuation of a backslash-joined one.
func (v *validator) leading(n *sitter.Node) bool {
	i := int(n.StartByte())
	for i > 0 && isBlank(v.src[i-1]) {
		i--
	}
	if i == 0 {
		return true
	}
	if v.src[i-1] != '\n' && v.src[i-1] != '\r' {
		return false
	}
	j := i - 1
	if v.src[j] == '\n' && j > 0 && v.src[j-1] == '\r' {
		j--
	}
	return j == 0 || v.src[j-1] != '\\'
}

// indent measures the leading whitespace of the line n starts on.
func (v *validator) indent(n *sitter.Node) int {
	start := int(n.StartByte())
	for start > 0 && v.src[start-1] != '\n' && v.src[start-1] != '\r' {
		start--
	}
	end := start
	for end < len(v.src) && isBlank(v.src[end]) {
		end++
	}
	return end - start
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\f'
}
