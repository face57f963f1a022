package pysyntax

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultTimeout bounds a single parse.
const DefaultTimeout = 5 * time.Second

// Parser turns Python source into a Module. It is safe for concurrent use;
// each call gets its own tree-sitter parser.
type Parser struct {
	timeout time.Duration
}

// NewParser creates a parser. A zero timeout means DefaultTimeout.
func NewParser(timeout time.Duration) *Parser {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Parser{timeout: timeout}
}

// Parse parses src. Syntax errors, timeouts, and cancellation are returned
// in Result.Err, never as panics.
func (p *Parser) Parse(ctx context.Context, src []byte) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: errors.Wrap(err, "parse aborted")}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ts := sitter.NewParser()
	defer ts.Close()
	ts.SetLanguage(python.GetLanguage())

	tree, err := ts.ParseCtx(ctx, nil, src)
	if err != nil {
		return Result{Err: errors.Wrap(err, "parse aborted")}
	}
	if tree == nil {
		return Result{Err: errors.New("parse aborted")}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return Result{Err: firstError(root)}
	}
	if err := validate(root, src); err != nil {
		return Result{Err: err}
	}

	b := &builder{src: src}
	return Result{Module: b.module(root)}
}

// firstError finds the earliest ERROR or MISSING node in document order.
func firstError(root *sitter.Node) error {
	var found *sitter.Node
	var visit func(n *sitter.Node) bool
	visit = func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return true
		}
		if !n.HasError() {
			return false
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if visit(n.Child(i)) {
				return true
			}
		}
		return false
	}
	visit(root)

	if found == nil {
		return &SyntaxError{Line: 1, Column: 1, Msg: "invalid syntax"}
	}
	pt := found.StartPoint()
	msg := "invalid syntax"
	if found.IsMissing() {
		msg = "missing " + strings.TrimSpace(found.Type())
	}
	return &SyntaxError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1, Msg: msg}
}

type builder struct {
	src []byte
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return fold(n.Content(b.src))
}

func (b *builder) module(root *sitter.Node) *Module {
	mod := &Module{}
	for _, stmt := range namedChildren(root) {
		switch stmt.Type() {
		case "expression_statement":
			if c := b.annotated(stmt); c != "" {
				mod.Constants = append(mod.Constants, c)
			}
		default:
			if d := b.decl(stmt); d != nil {
				mod.Decls = append(mod.Decls, d)
			}
		}
	}
	mod.Imports = b.imports(root)
	return mod
}

// decl converts a function, class, or decorated definition. Other
// statements yield nil.
func (b *builder) decl(n *sitter.Node) *Decl {
	switch n.Type() {
	case "decorated_definition":
		inner := n.ChildByFieldName("definition")
		if inner == nil {
			return nil
		}
		d := b.decl(inner)
		if d == nil {
			return nil
		}
		for _, c := range namedChildren(n) {
			if c.Type() != "decorator" {
				continue
			}
			if expr := firstNamed(c); expr != nil {
				d.Decorators = append(d.Decorators, b.text(expr))
			}
		}
		return d
	case "function_definition":
		return b.function(n)
	case "class_definition":
		return b.class(n)
	}
	return nil
}

func (b *builder) function(n *sitter.Node) *Decl {
	d := &Decl{Kind: Function, Name: b.text(n.ChildByFieldName("name"))}
	if n.ChildCount() > 0 && n.Child(0).Type() == "async" {
		d.Kind = AsyncFunction
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		parts := make([]string, 0, params.NamedChildCount())
		for _, p := range namedChildren(params) {
			parts = append(parts, b.text(p))
		}
		d.Params = strings.Join(parts, ", ")
	}
	d.Returns = b.text(n.ChildByFieldName("return_type"))

	if body := n.ChildByFieldName("body"); body != nil {
		d.Doc = b.docstring(body)
		b.returns(body, &d.ReturnExprs)
	}
	return d
}

func (b *builder) class(n *sitter.Node) *Decl {
	d := &Decl{Kind: Class, Name: b.text(n.ChildByFieldName("name"))}

	if bases := n.ChildByFieldName("superclasses"); bases != nil {
		parts := make([]string, 0, bases.NamedChildCount())
		for _, a := range namedChildren(bases) {
			parts = append(parts, b.text(a))
		}
		d.Bases = strings.Join(parts, ", ")
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return d
	}
	d.Doc = b.docstring(body)
	for _, stmt := range namedChildren(body) {
		if stmt.Type() == "expression_statement" {
			if f := b.annotated(stmt); f != "" {
				d.Fields = append(d.Fields, f)
			}
			continue
		}
		if inner := b.decl(stmt); inner != nil {
			d.Body = append(d.Body, inner)
		}
	}
	return d
}

// annotated renders `name: type [= value]` when stmt is an annotated
// assignment to a plain name.
func (b *builder) annotated(stmt *sitter.Node) string {
	if stmt.NamedChildCount() != 1 {
		return ""
	}
	asg := firstNamed(stmt)
	if asg == nil || asg.Type() != "assignment" {
		return ""
	}
	typ := asg.ChildByFieldName("type")
	left := asg.ChildByFieldName("left")
	if typ == nil || left == nil {
		return ""
	}
	if left.Type() != "identifier" {
		return ""
	}
	out := b.text(left) + ": " + b.text(typ)
	if right := asg.ChildByFieldName("right"); right != nil {
		out += " = " + b.text(right)
	}
	return out
}

// returns appends the text of every valued return statement under n in
// document order, including those in nested definitions.
func (b *builder) returns(n *sitter.Node, out *[]string) {
	if n.Type() == "return_statement" {
		if v := firstNamed(n); v != nil {
			*out = append(*out, b.text(v))
		}
		return
	}
	for _, c := range namedChildren(n) {
		b.returns(c, out)
	}
}

func (b *builder) imports(root *sitter.Node) []Import {
	var out []Import
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for _, c := range namedChildren(n) {
				name := c
				if c.Type() == "aliased_import" {
					name = c.ChildByFieldName("name")
				}
				if name != nil && name.Type() == "dotted_name" {
					out = append(out, Import{Module: b.text(name)})
				}
			}
			return
		case "import_from_statement":
			if imp, ok := b.fromImport(n.ChildByFieldName("module_name")); ok {
				out = append(out, imp)
			}
			return
		case "future_import_statement":
			out = append(out, Import{Module: "__future__"})
			return
		}
		for _, c := range namedChildren(n) {
			visit(c)
		}
	}
	visit(root)
	return out
}

func (b *builder) fromImport(mod *sitter.Node) (Import, bool) {
	if mod == nil {
		return Import{}, false
	}
	switch mod.Type() {
	case "dotted_name":
		return Import{Module: b.text(mod)}, true
	case "relative_import":
		imp := Import{}
		for _, c := range namedChildren(mod) {
			switch c.Type() {
			case "import_prefix":
				imp.Level = strings.Count(c.Content(b.src), ".")
			case "dotted_name":
				imp.Module = b.text(c)
			}
		}
		return imp, imp.Level > 0 || imp.Module != ""
	}
	return Import{}, false
}

// namedChildren returns n's named children without comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if cs := namedChildren(n); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// fold collapses a multi-line source fragment onto one line.
func fold(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}
