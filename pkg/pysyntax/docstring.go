package pysyntax

import (
	"math"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// docstring returns the cleaned docstring of a block: its first statement
// when that is a plain (non-f, non-bytes) string literal.
func (b *builder) docstring(body *sitter.Node) string {
	stmts := namedChildren(body)
	if len(stmts) == 0 || stmts[0].Type() != "expression_statement" {
		return ""
	}
	exprs := namedChildren(stmts[0])
	if len(exprs) != 1 {
		return ""
	}

	var raw string
	switch expr := exprs[0]; expr.Type() {
	case "string":
		s, ok := b.literal(expr)
		if !ok {
			return ""
		}
		raw = s
	case "concatenated_string":
		var sb strings.Builder
		for _, part := range namedChildren(expr) {
			s, ok := b.literal(part)
			if !ok {
				return ""
			}
			sb.WriteString(s)
		}
		raw = sb.String()
	default:
		return ""
	}
	return cleandoc(raw)
}

// literal returns the value of a string literal node.
func (b *builder) literal(n *sitter.Node) (string, bool) {
	if n.Type() != "string" {
		return "", false
	}
	for _, c := range namedChildren(n) {
		if c.Type() == "interpolation" {
			return "", false
		}
	}

	text := n.Content(b.src)
	i := strings.IndexAny(text, `"'`)
	if i < 0 {
		return "", false
	}
	prefix := strings.ToLower(text[:i])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}
	body := text[i:]

	switch {
	case len(body) >= 6 && (strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`)):
		body = body[3 : len(body)-3]
	case len(body) >= 2:
		body = body[1 : len(body)-1]
	default:
		return "", false
	}

	if strings.Contains(prefix, "r") {
		return body, true
	}
	return unescape(body), true
}

// unescape handles the escapes that commonly appear in docstrings. Other
// sequences are kept verbatim.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\n':
			// line continuation
		case '\\':
			sb.WriteByte('\\')
		case '\'':
			sb.WriteByte('\'')
		case '"':
			sb.WriteByte('"')
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// cleandoc strips the uniform indentation of docstring continuation lines
// and the blank lines around the text.
func cleandoc(doc string) string {
	lines := strings.Split(expandTabs(strings.ReplaceAll(doc, "\r\n", "\n")), "\n")

	margin := math.MaxInt
	for _, l := range lines[1:] {
		content := strings.TrimLeft(l, " ")
		if content == "" {
			continue
		}
		if indent := len(l) - len(content); indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], " \t")
	if margin < math.MaxInt {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = ""
			}
		}
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := 8 - col%8
			sb.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n':
			sb.WriteRune(r)
			col = 0
		default:
			sb.WriteRune(r)
			col++
		}
	}
	return sb.String()
}
