package analysis

import (
	"fmt"
	"go/ast"
	"go/build"
	"go/importer"
	"go/parser"
	"go/token"
	gotypes "go/types"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mamaar/shortfunc/pkg/types"
)

// GoParser parses a file together with its package siblings and runs the
// type checker over them. One parser may be shared by goroutines. Every
// load gets its own file set, so positions never outlive the package they
// were parsed for.
type GoParser struct {
	logger   *slog.Logger
	importer *chainImporter
}

func NewParser(logger *slog.Logger) *GoParser {
	return &GoParser{
		logger:   logger,
		importer: &chainImporter{fset: token.NewFileSet()},
	}
}

// ParseSource parses content as the file at filename. The file is the only
// member of its package.
func (p *GoParser) ParseSource(filename string, content []byte) (*types.File, error) {
	fset := token.NewFileSet()
	file, err := p.parse(fset, filename, content)
	if err != nil {
		return nil, err
	}
	file.Package = &types.Package{
		Dir:     filepath.Dir(filename),
		Name:    file.AST.Name.Name,
		FileSet: fset,
		Files:   map[string]*types.File{filename: file},
	}
	return file, nil
}

// ParseFile reads and parses a single Go file
func (p *GoParser) ParseFile(filename string) (*types.File, error) {
	content, err := readFile(filename)
	if err != nil {
		return nil, err
	}
	return p.ParseSource(filename, content)
}

func (p *GoParser) parse(fset *token.FileSet, filename string, content []byte) (*types.File, error) {
	astFile, err := parser.ParseFile(fset, filename, content, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: fmt.Sprintf("failed to parse file: %v", err),
			File:    filename,
			Cause:   err,
		}
	}

	return &types.File{
		Path:    filename,
		AST:     astFile,
		Content: content,
	}, nil
}

func readFile(filename string) ([]byte, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read file: %v", err),
			File:    filename,
			Cause:   err,
		}
	}
	return content, nil
}

// LoadPackage parses content as the file at path, parses the other files of
// its directory that belong to the same package and build configuration, and
// type-checks the result. The returned file is the one built from content.
func (p *GoParser) LoadPackage(path string, content []byte) (*types.Package, *types.File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to get absolute path: %v", err),
			File:    path,
			Cause:   err,
		}
	}

	fset := token.NewFileSet()
	target, err := p.parse(fset, absPath, content)
	if err != nil {
		return nil, nil, err
	}

	dir := filepath.Dir(absPath)
	pkg := &types.Package{
		Dir:     dir,
		Name:    target.AST.Name.Name,
		FileSet: fset,
		Files:   map[string]*types.File{absPath: target},
	}
	target.Package = pkg

	for _, sibling := range p.siblings(dir, absPath) {
		src, err := readFile(sibling)
		if err != nil {
			p.logger.Debug("skipping unreadable sibling", "file", sibling, "err", err)
			continue
		}
		file, err := p.parse(fset, sibling, src)
		if err != nil {
			p.logger.Debug("skipping unparsable sibling", "file", sibling, "err", err)
			continue
		}
		if file.AST.Name.Name != pkg.Name {
			continue
		}
		file.Package = pkg
		pkg.Files[sibling] = file
	}

	pkg.ImportPath = pkg.Name
	p.TypeCheckPackage(pkg)

	return pkg, target, nil
}

// siblings lists the .go files next to target that the go tool would compile
// together with it.
func (p *GoParser) siblings(dir, target string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.logger.Debug("cannot list package directory", "dir", dir, "err", err)
		return nil
	}

	wantTests := strings.HasSuffix(target, "_test.go")
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		path := filepath.Join(dir, name)
		if path == target {
			continue
		}
		if strings.HasSuffix(name, "_test.go") && !wantTests {
			continue
		}
		if ok, err := build.Default.MatchFile(dir, name); err != nil || !ok {
			continue
		}
		out = append(out, path)
	}
	return out
}

// TypeCheckPackage runs go/types type-checking on a package.
// Results are stored in pkg.TypesInfo and pkg.TypesPkg.
// Type errors are ignored; go/types still records whatever it could
// resolve, and callers treat anything missing as unresolved.
func (p *GoParser) TypeCheckPackage(pkg *types.Package) {
	files := pkg.ASTFiles()
	if len(files) == 0 {
		return
	}

	var errCount int
	conf := gotypes.Config{
		Importer: p.importer,
		Error:    func(err error) { errCount++ },
	}
	info := &gotypes.Info{
		Types:      make(map[ast.Expr]gotypes.TypeAndValue),
		Defs:       make(map[*ast.Ident]gotypes.Object),
		Uses:       make(map[*ast.Ident]gotypes.Object),
		Implicits:  make(map[ast.Node]gotypes.Object),
		Selections: make(map[*ast.SelectorExpr]*gotypes.Selection),
	}

	typesPkg, _ := conf.Check(pkg.ImportPath, pkg.FileSet, files, info)
	if errCount > 0 {
		p.logger.Debug("type-checking reported errors", "package", pkg.Dir, "errors", errCount)
	}
	pkg.TypesInfo = info
	pkg.TypesPkg = typesPkg
}

// chainImporter resolves imports from compiler export data and falls back to
// type-checking the imported package from source. Importers are not safe for
// concurrent use, so every lookup is serialized.
type chainImporter struct {
	mu     sync.Mutex
	fset   *token.FileSet
	gc     gotypes.Importer
	source gotypes.ImporterFrom
}

func (imp *chainImporter) Import(path string) (*gotypes.Package, error) {
	return imp.ImportFrom(path, "", 0)
}

func (imp *chainImporter) ImportFrom(path, dir string, mode gotypes.ImportMode) (*gotypes.Package, error) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	if imp.gc == nil {
		imp.gc = importer.Default()
	}
	var pkg *gotypes.Package
	var err error
	if from, ok := imp.gc.(gotypes.ImporterFrom); ok {
		pkg, err = from.ImportFrom(path, dir, mode)
	} else {
		pkg, err = imp.gc.Import(path)
	}
	if err == nil {
		return pkg, nil
	}

	if imp.source == nil {
		src, ok := importer.ForCompiler(imp.fset, "source", nil).(gotypes.ImporterFrom)
		if !ok {
			return nil, err
		}
		imp.source = src
	}
	return imp.source.ImportFrom(path, dir, mode)
}
