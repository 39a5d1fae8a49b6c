package refactor

import (
	"go/ast"
	"go/token"
	gotypes "go/types"
	"path"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var trailingDigits = regexp.MustCompile(`^(.+)(\d+)$`)

// uniqueName returns base when it is free. Otherwise a trailing number is
// split off base (or 1 is used) and incremented until the name is free.
func uniqueName(base string, taken func(string) bool) string {
	stem, count := base, 1
	if m := trailingDigits.FindStringSubmatch(base); m != nil {
		stem = m[1]
		count, _ = strconv.Atoi(m[2])
	}
	name := stem
	for taken(name) {
		name = stem + strconv.Itoa(count)
		count++
	}
	return name
}

// capitalize upper-cases the first letter of s.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return cases.Upper(language.Und).String(string(r)) + s[size:]
}

// unexport lower-cases the leading capitals of name, keeping the last one
// of a run when it starts the next word: Run -> run, HTTPHandler ->
// httpHandler, ID -> id.
func unexport(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n == 0 {
		return name
	}
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		n--
	}
	return cases.Lower(language.Und).String(string(runes[:n])) + string(runes[n:])
}

// helperName picks the helper's name: the unexported name of the original
// function, or get<Output> when the helper hands back a variable.
func (s *MethodSynthesizer) helperName(c *Candidate) string {
	base := unexport(s.fn.decl.Name.Name)
	if c.Output != nil {
		base = "get" + capitalize(c.Output.Name())
	}
	return uniqueName(base, s.nameTaken)
}

// nameTaken reports whether a helper called name would clash with anything
// visible where it is declared or called.
func (s *MethodSynthesizer) nameTaken(name string) bool {
	if token.IsKeyword(name) || name == "_" {
		return true
	}
	if s.locals == nil {
		s.locals = s.localNames()
	}
	if s.locals[name] {
		return true
	}
	if s.fn.isMethodHelper() {
		return s.methodTaken(name)
	}
	return s.packageTaken(name)
}

// localNames collects every name declared inside the original function, so
// the call in the remainder cannot be shadowed.
func (s *MethodSynthesizer) localNames() map[string]bool {
	names := make(map[string]bool)
	ast.Inspect(s.fn.decl, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			if obj := s.fn.resolver.Info().Defs[id]; obj != nil && obj.Parent() != nil {
				if pkg := s.fn.resolver.Package(); pkg == nil || obj.Parent() != pkg.Scope() {
					names[id.Name] = true
				}
			}
		}
		return true
	})
	return names
}

// methodTaken checks the fields and methods of the receiver type, promoted
// ones included, plus every method declared on it in the package sources.
func (s *MethodSynthesizer) methodTaken(name string) bool {
	recvName := recvTypeName(s.fn.decl.Recv.List[0].Type)

	if pkg := s.fn.resolver.Package(); pkg != nil {
		if tn, ok := pkg.Scope().Lookup(recvName).(*gotypes.TypeName); ok {
			obj, _, _ := gotypes.LookupFieldOrMethod(gotypes.NewPointer(tn.Type()), true, pkg, name)
			if obj != nil {
				return true
			}
		}
	}

	for _, f := range s.fn.file.Package.Files {
		for _, decl := range f.AST.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
				continue
			}
			if fd.Name.Name == name && recvTypeName(fd.Recv.List[0].Type) == recvName {
				return true
			}
		}
	}
	return false
}

// packageTaken checks the package block, the universe and every import
// name of the package's files.
func (s *MethodSynthesizer) packageTaken(name string) bool {
	if gotypes.Universe.Lookup(name) != nil {
		return true
	}
	if pkg := s.fn.resolver.Package(); pkg != nil && pkg.Scope().Lookup(name) != nil {
		return true
	}

	for _, f := range s.fn.file.Package.Files {
		for _, imp := range f.AST.Imports {
			if importName(imp) == name {
				return true
			}
		}
		for _, decl := range f.AST.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil && d.Name.Name == name {
					return true
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch sp := spec.(type) {
					case *ast.TypeSpec:
						if sp.Name.Name == name {
							return true
						}
					case *ast.ValueSpec:
						for _, id := range sp.Names {
							if id.Name == name {
								return true
							}
						}
					}
				}
			}
		}
	}
	return false
}

// importName guesses the local name of an import from its spec. The last
// path element is right for nearly every package; a mismatch only makes a
// name look taken that is not.
func importName(imp *ast.ImportSpec) string {
	if imp.Name != nil {
		return imp.Name.Name
	}
	p, err := strconv.Unquote(imp.Path.Value)
	if err != nil {
		return ""
	}
	return path.Base(p)
}
