//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/pkg/errors"
)

const binaryDir = "bin"

// Build compiles the drfcontroller binary into ./bin.
func Build() error {
	mg.Deps(goCheck)
	return goRun("build", "-o", binaryDir+"/"+binaryWithExt("drfcontroller"), "./cmd/drfcontroller")
}

// Check dependent tools are present and the correct version.
func CheckDeps() error {
	checks := []struct {
		name  string
		check func() error
	}{
		{"go", goCheck},
		{"golangci-lint", golangciLintCheck},
		{"kubectl", kubectlCheck},
	}
	failures := false
	for _, check := range checks {
		fmt.Printf("Checking %s... ", check.name)
		if err := check.check(); err != nil {
			fmt.Printf("FAILED\nReason: %v\n", err)
			failures = true
		} else {
			fmt.Println("PASSED")
		}
	}
	if failures {
		return errors.New("check(s) failed.")
	}
	return nil
}

// Clean removes build output.
func Clean() {
	fmt.Println("Cleaning...")
	for _, path := range []string{binaryDir, "coverage.out"} {
		os.RemoveAll(path)
	}
}

// Score prints the current ranking against the cluster in the active kubeconfig.
func Score() error {
	mg.Deps(Build)
	return sh.RunV(binaryDir+"/"+binaryWithExt("drfcontroller"), "score")
}
