// Package pysyntax parses Python source into the small declaration tree
// that skeleton rendering and import extraction work from.
//
// The tree keeps only what those consumers need: top-level annotated
// constants, function and class declarations (nested), and every import
// statement in source order. Text such as parameter lists, annotations and
// return expressions is copied from the source with line breaks folded.
package pysyntax

import "fmt"

// Kind tags a declaration.
type Kind int

const (
	Function Kind = iota
	AsyncFunction
	Class
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case AsyncFunction:
		return "async function"
	case Class:
		return "class"
	default:
		return "unknown"
	}
}

// Decl is a function, async function, or class declaration.
type Decl struct {
	Kind       Kind
	Name       string
	Decorators []string // decorator expressions without the leading @
	Doc        string   // cleaned docstring, "" when absent

	// functions
	Params      string   // parameter list without parentheses
	Returns     string   // return annotation, "" when absent
	ReturnExprs []string // returned expressions anywhere in the body, source order

	// classes
	Bases  string   // base list without parentheses, "" when absent
	Fields []string // annotated assignments directly in the class body
	Body   []*Decl  // nested functions and classes, source order
}

// IsFunction reports whether d is a function or async function.
func (d *Decl) IsFunction() bool {
	return d.Kind == Function || d.Kind == AsyncFunction
}

// Methods returns the nested function declarations of a class.
func (d *Decl) Methods() []*Decl {
	return d.filter(true)
}

// Classes returns the nested class declarations of a class.
func (d *Decl) Classes() []*Decl {
	return d.filter(false)
}

func (d *Decl) filter(functions bool) []*Decl {
	var out []*Decl
	for _, c := range d.Body {
		if c.IsFunction() == functions {
			out = append(out, c)
		}
	}
	return out
}

// Import is one imported module reference. Level is 0 for absolute
// imports and the number of leading dots for relative ones. Module is ""
// for `from . import x`.
type Import struct {
	Module string
	Level  int
}

// Module is a parsed source file.
type Module struct {
	Constants []string // top-level annotated assignments, rendered
	Decls     []*Decl
	Imports   []Import
}

// SyntaxError locates the first invalid construct in a file.
type SyntaxError struct {
	Line   int // 1-based
	Column int // 1-based
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (line %d, column %d)", e.Msg, e.Line, e.Column)
}

// Result is the outcome of parsing one file: exactly one of Module and
// Err is set.
type Result struct {
	Module *Module
	Err    error
}

// OK reports whether parsing produced a module.
func (r Result) OK() bool { return r.Err == nil && r.Module != nil }
