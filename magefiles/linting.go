//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/pkg/errors"
)

const GOLANGCI_LINT_VERSION_CONSTRAINT = ">= 1.52.0"

func golangciLintCheck() error {
	output, err := sh.Output(binaryWithExt("golangci-lint"), "--version")
	if err != nil {
		return errors.Errorf("error running version cmd: %v", err)
	}
	fields := strings.Fields(output)
	if len(fields) < 4 {
		return errors.Errorf("unexpected version cmd output: %s", output)
	}
	return constraintCheck(strings.TrimPrefix(fields[3], "v"), GOLANGCI_LINT_VERSION_CONSTRAINT, "golangci-lint")
}

// LintFix runs golangci-lint and applies automatic fixes.
func LintFix() error {
	mg.Deps(golangciLintCheck)
	return lint("--fix")
}

// CheckLint runs golangci-lint.
func CheckLint() error {
	mg.Deps(golangciLintCheck)
	return lint()
}

func lint(extraArgs ...string) error {
	args := append([]string{"run", "--timeout", "10m"}, extraArgs...)
	output, err := sh.Output(binaryWithExt("golangci-lint"), args...)
	if err != nil {
		fmt.Printf("\nOutput: %s\n", output)
	}
	return err
}
