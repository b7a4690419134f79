package sandbox

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
)

// EntryPoint is the function every candidate must declare.
const EntryPoint = "PlaceItems"

// EntryPointSignature is how the entry point is described in error messages.
const EntryPointSignature = "PlaceItems(items, space)"

// Validation stages reported on *placement.PlacementError.
const (
	StageStructural = "structural"
	StageLoad       = "load"
)

// Manifest is what Inspect learned about a candidate.
type Manifest struct {
	Package string
	Imports []string
}

// Inspect parses source and checks that it declares the entry point with two
// parameters and two results, imports only allowlisted packages, uses only
// their allowlisted symbols and starts no goroutines. It does not execute
// anything.
func Inspect(source []byte) (*Manifest, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", source, parser.SkipObjectResolution)
	if err != nil {
		return nil, placement.NewInvalidCandidateError(StageStructural, "source does not parse", err)
	}

	m := &Manifest{Package: file.Name.Name}
	if m.Package == HostPackage {
		return nil, placement.NewInvalidCandidateError(StageStructural,
			fmt.Sprintf("package name %q is reserved", HostPackage), nil)
	}

	var forbidden []string
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return nil, placement.NewInvalidCandidateError(StageStructural, "malformed import", err)
		}
		m.Imports = append(m.Imports, path)
		if !importAllowed(path) {
			forbidden = append(forbidden, path)
		}
	}
	if len(forbidden) > 0 {
		return nil, placement.NewInvalidCandidateError(
			StageStructural,
			fmt.Sprintf("forbidden imports %v (allowed: %s)", forbidden, strings.Join(AllowedImports(), ", ")),
			nil,
		)
	}

	entry := findEntryPoint(file)
	if entry == nil {
		return nil, placement.NewInvalidCandidateError(
			StageStructural,
			"missing entry point "+EntryPointSignature,
			nil,
		)
	}
	if params, results := countFields(entry.Type.Params), countFields(entry.Type.Results); params != 2 || results != 2 {
		return nil, placement.NewInvalidCandidateError(
			StageStructural,
			fmt.Sprintf("entry point must be %s returning (placed, error); found %d parameters and %d results",
				EntryPointSignature, params, results),
			nil,
		)
	}

	if err := checkSymbols(fset, file); err != nil {
		return nil, err
	}

	if pos, found := findGoStmt(file); found {
		return nil, placement.NewInvalidCandidateError(
			StageStructural,
			fmt.Sprintf("goroutines are not allowed (%s)", fset.Position(pos)),
			nil,
		)
	}

	return m, nil
}

func findEntryPoint(file *ast.File) *ast.FuncDecl {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Name.Name != EntryPoint {
			continue
		}
		return fn
	}
	return nil
}

func countFields(fl *ast.FieldList) int {
	if fl == nil {
		return 0
	}
	n := 0
	for _, f := range fl.List {
		if len(f.Names) == 0 {
			n++
			continue
		}
		n += len(f.Names)
	}
	return n
}

// checkSymbols rejects references to symbols a restricted package does not
// expose, and dot imports of such packages.
func checkSymbols(fset *token.FileSet, file *ast.File) error {
	restricted := make(map[string]map[string]bool)
	for _, imp := range file.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		allow := stdlibAllowlist[path]
		if allow == nil {
			continue
		}
		local := path[strings.LastIndex(path, "/")+1:]
		if imp.Name != nil {
			local = imp.Name.Name
		}
		if local == "." {
			return placement.NewInvalidCandidateError(StageStructural,
				fmt.Sprintf("dot import of %q is not allowed", path), nil)
		}
		restricted[local] = allow
	}
	if len(restricted) == 0 {
		return nil
	}

	var bad []string
	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		id, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		if allow, ok := restricted[id.Name]; ok && !allow[sel.Sel.Name] {
			bad = append(bad, fmt.Sprintf("%s.%s (%s)", id.Name, sel.Sel.Name, fset.Position(sel.Pos())))
		}
		return true
	})
	if len(bad) > 0 {
		return placement.NewInvalidCandidateError(StageStructural,
			"symbols not available to strategies: "+strings.Join(bad, ", "), nil)
	}
	return nil
}

func findGoStmt(file *ast.File) (token.Pos, bool) {
	var pos token.Pos
	ast.Inspect(file, func(n ast.Node) bool {
		if pos.IsValid() {
			return false
		}
		if g, ok := n.(*ast.GoStmt); ok {
			pos = g.Pos()
			return false
		}
		return true
	})
	return pos, pos.IsValid()
}

// AllowedImports lists the import paths a candidate may use.
func AllowedImports() []string {
	out := make([]string, 0, len(stdlibAllowlist)+1)
	for path := range stdlibAllowlist {
		out = append(out, path)
	}
	out = append(out, ModelImportPath)
	sort.Strings(out)
	return out
}

func importAllowed(path string) bool {
	if path == ModelImportPath {
		return true
	}
	_, ok := stdlibAllowlist[path]
	return ok
}
