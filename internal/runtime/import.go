package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"spl/internal/ast"
	"spl/internal/diag"
	"spl/internal/parser"
)

// Resolver locates and reads imported files. The lookup order is the
// importing file's directory, the configured search paths, then the
// directories named by SPL_PATH. Paths are canonicalized so the same file
// reached through different spellings counts as one import.
type Resolver struct {
	SearchPaths []string
}

func (r *Resolver) Resolve(target, importer string) (string, error) {
	if filepath.IsAbs(target) {
		if fileExists(target) {
			return canonical(target)
		}
		return "", fmt.Errorf("cannot resolve import %q", target)
	}
	dirs := []string{filepath.Dir(importer)}
	dirs = append(dirs, r.SearchPaths...)
	if env := os.Getenv("SPL_PATH"); env != "" {
		dirs = append(dirs, filepath.SplitList(env)...)
	}
	for _, dir := range dirs {
		cand := filepath.Join(dir, target)
		if fileExists(cand) {
			return canonical(cand)
		}
	}
	return "", fmt.Errorf("cannot resolve import %q", target)
}

func (r *Resolver) Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// execImport runs an imported file's top level against the shared global
// frame. The registry is marked before execution, so cyclic imports load
// each file once instead of recursing.
func (ip *Interp) execImport(s *ast.ImportStmt, file string) error {
	path, err := ip.resolver.Resolve(s.Target, file)
	if err != nil {
		return ip.errf(diag.Semantic, errPos{file, s.GetSpan()}, "%v", err)
	}
	if ip.imported[path] {
		return nil
	}
	ip.imported[path] = true
	src, err := ip.resolver.Load(path)
	if err != nil {
		return ip.errf(diag.Semantic, errPos{file, s.GetSpan()}, "cannot read import %q: %v", s.Target, err)
	}
	prog, err := parser.New(path, src).ParseProgram()
	if err != nil {
		return err
	}
	for _, stmt := range prog.Stmts {
		if err := ip.execTop(stmt, path); err != nil {
			return err
		}
	}
	return nil
}
