// Package discover finds the Go files a run should refactor.
package discover

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/mamaar/shortfunc/pkg/types"
)

// Options filters discovered files.
type Options struct {
	// IncludeTests keeps _test.go files.
	IncludeTests bool
	// Extensions lists accepted file extensions. Empty means ".go".
	Extensions []string
}

var skipDirs = map[string]struct{}{
	"vendor":       {},
	"testdata":     {},
	"node_modules": {},
}

// Files returns the absolute paths of the files under roots, sorted and
// without duplicates. A root may be a single file; it is returned as long
// as it exists, whatever its name. Hidden and vendored directories,
// gitignored paths and generated files are skipped. Any error while walking
// is returned as a WalkError.
func Files(roots []string, opts Options) ([]string, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".go"}
	}

	seen := make(map[string]struct{})
	var results []string
	add := func(path string) {
		if _, ok := seen[path]; !ok {
			seen[path] = struct{}{}
			results = append(results, path)
		}
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, walkError(root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, walkError(root, err)
		}
		if !info.IsDir() {
			add(abs)
			continue
		}

		gi := loadGitignore(abs)
		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}

			name := d.Name()
			if d.IsDir() {
				if path == abs {
					return nil
				}
				if SkipDir(name) {
					return filepath.SkipDir
				}
				if gi != nil && gi.MatchesPath(rel(abs, path)+"/") {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Type()&os.ModeSymlink != 0 || !acceptName(name, exts, opts.IncludeTests) {
				return nil
			}
			if gi != nil && gi.MatchesPath(rel(abs, path)) {
				return nil
			}
			if generated(path) {
				return nil
			}

			add(path)
			return nil
		})
		if err != nil {
			return nil, walkError(root, err)
		}
	}

	sort.Strings(results)
	return results, nil
}

// SkipDir reports whether a directory named name is never searched.
func SkipDir(name string) bool {
	if _, skip := skipDirs[name]; skip {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// Accept reports whether the single file at path passes the name filters
// of opts and is not generated. Ignore files are not consulted.
func Accept(path string, opts Options) bool {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".go"}
	}
	return acceptName(filepath.Base(path), exts, opts.IncludeTests) && !generated(path)
}

func acceptName(name string, exts []string, includeTests bool) bool {
	if strings.HasPrefix(name, ".") || !hasExt(name, exts) {
		return false
	}
	return includeTests || !strings.HasSuffix(name, "_test.go")
}

func walkError(root string, err error) error {
	return &types.RefactorError{
		Type:    types.WalkError,
		Message: "cannot walk " + root + ": " + err.Error(),
		File:    root,
		Cause:   err,
	}
}

func rel(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(r)
}

func hasExt(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// generated reports whether the file carries a "Code generated ... DO NOT
// EDIT." comment. Unparseable files are not considered generated; the
// driver reports them.
func generated(path string) bool {
	f, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.PackageClauseOnly|parser.ParseComments)
	if err != nil {
		return false
	}
	return ast.IsGenerated(f)
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
