//go:build mage

package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
)

// layerRules lists, per source directory prefix, the module-internal import
// prefixes that directory must not use.
var layerRules = []struct {
	dir       string
	forbidden []string
}{
	{dir: "internal/domain", forbidden: []string{"internal/adapters", "internal/application", "internal/cli", "internal/config"}},
	{dir: "internal/application", forbidden: []string{"internal/adapters/http", "internal/adapters/proxy", "internal/cli"}},
	{dir: "internal/adapters/storage", forbidden: []string{"internal/application", "internal/adapters/proxy", "internal/cli"}},
	{dir: "internal/adapters/proxy", forbidden: []string{"internal/adapters/storage", "internal/application", "internal/domain"}},
}

// Layering fails when a package imports across a forbidden layer boundary.
func Layering() error {
	fset := token.NewFileSet()
	var violations []string

	err := filepath.WalkDir("internal", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		slashed := filepath.ToSlash(path)
		for _, rule := range layerRules {
			if !strings.HasPrefix(slashed, rule.dir+"/") {
				continue
			}
			for _, imp := range f.Imports {
				p, _ := strconv.Unquote(imp.Path.Value)
				for _, bad := range rule.forbidden {
					if strings.HasPrefix(p, modulePath+"/"+bad) {
						violations = append(violations, fmt.Sprintf("%s imports %s", slashed, p))
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("layering violations:\n  %s", strings.Join(violations, "\n  "))
	}
	fmt.Println("layering ok")
	return nil
}
