package types

import (
	"go/ast"
	"go/token"
	gotypes "go/types"
	"sort"
)

// Package is one directory's worth of Go files sharing a package clause.
// The file being refactored is always among Files; its siblings are parsed
// only so the type checker and the name generator see the whole namespace.
type Package struct {
	Dir        string
	Name       string
	ImportPath string
	FileSet    *token.FileSet
	Files      map[string]*File // absolute path -> File

	TypesPkg  *gotypes.Package
	TypesInfo *gotypes.Info
}

// File represents a single Go source file
type File struct {
	Path    string
	Package *Package
	AST     *ast.File
	Content []byte
}

// SortedFiles returns the package files ordered by path.
func (p *Package) SortedFiles() []*File {
	files := make([]*File, 0, len(p.Files))
	for _, f := range p.Files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// ASTFiles returns the syntax trees of all files in path order.
func (p *Package) ASTFiles() []*ast.File {
	var out []*ast.File
	for _, f := range p.SortedFiles() {
		if f.AST != nil {
			out = append(out, f.AST)
		}
	}
	return out
}

// Offset converts a position inside f into a byte offset of f.Content.
func (f *File) Offset(pos token.Pos) int {
	return f.Package.FileSet.Position(pos).Offset
}

// Line returns the 1-based line of pos.
func (f *File) Line(pos token.Pos) int {
	return f.Package.FileSet.Position(pos).Line
}

// Text returns the source text between two positions of f.
func (f *File) Text(from, to token.Pos) string {
	return string(f.Content[f.Offset(from):f.Offset(to)])
}
