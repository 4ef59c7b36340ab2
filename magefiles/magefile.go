//go:build mage

// Package main provides build targets for vitebridge using Mage.
//
// Usage:
//
//	mage build        Compile the vitebridge binary to bin/
//	mage test         Run all tests, browser tests included
//	mage testUnit     Run tests in -short mode, excluding tests/
//	mage testBrowser  Install Chromium for playwright and run tests/browser
//	mage lint         Run golangci-lint and the import layering check
//	mage clean        Remove build artifacts
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "vitebridge"
	binaryDir  = "bin"
	cmdDir     = "./cmd/server"
	modulePath = "vitebridge"
)

// Build compiles the vitebridge binary to bin/ with the git version stamped in.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	ldflags := fmt.Sprintf("-X %s/internal/cli.version=%s", modulePath, version)
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests, browser tests included.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestUnit runs tests in short mode, excluding the tests/ directory.
func TestUnit() error {
	pkgs, err := sh.Output("go", "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for _, pkg := range strings.Split(pkgs, "\n") {
		if pkg != "" && !strings.Contains(pkg, "/tests/") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test", "-short", "-race"}, unitPkgs...)
	return sh.RunV("go", args...)
}

// TestBrowser installs the playwright Chromium build and runs the browser tests.
func TestBrowser() error {
	if err := sh.RunV("go", "run", "github.com/playwright-community/playwright-go/cmd/playwright", "install", "--with-deps", "chromium"); err != nil {
		return err
	}
	return sh.RunV("go", "test", "-v", "./tests/browser/...")
}

// Lint runs golangci-lint, then the import layering check.
func Lint() error {
	mg.Deps(Layering)
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}
