//go:build mage

package main

import (
	"fmt"
	"runtime"
	"strings"

	semver "github.com/Masterminds/semver/v3"
	"github.com/magefile/mage/sh"
	"github.com/pkg/errors"
)

const (
	GO_VERSION_CONSTRAINT      = ">= 1.19.0"
	KUBECTL_VERSION_CONSTRAINT = ">= 1.24.0"
)

func binaryWithExt(name string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("%s.exe", name)
	}
	return name
}

func goRun(args ...string) error {
	return sh.RunV("go", args...)
}

func goOutput(args ...string) (string, error) {
	return sh.Output("go", args...)
}

func goCheck() error {
	output, err := goOutput("version")
	if err != nil {
		return errors.Errorf("error running version cmd: %v", err)
	}
	// go version go1.20.3 linux/amd64
	fields := strings.Fields(output)
	if len(fields) < 3 {
		return errors.Errorf("unexpected version cmd output: %s", output)
	}
	return constraintCheck(strings.TrimPrefix(fields[2], "go"), GO_VERSION_CONSTRAINT, "go")
}

func kubectlCheck() error {
	output, err := sh.Output(binaryWithExt("kubectl"), "version", "--client", "--short")
	if err != nil {
		return errors.Errorf("error running version cmd: %v", err)
	}
	// Client Version: v1.27.1
	fields := strings.Fields(output)
	if len(fields) < 3 {
		return errors.Errorf("unexpected version cmd output: %s", output)
	}
	return constraintCheck(strings.TrimPrefix(fields[2], "v"), KUBECTL_VERSION_CONSTRAINT, "kubectl")
}

func constraintCheck(rawVersion, constraintString, name string) error {
	version, err := semver.NewVersion(rawVersion)
	if err != nil {
		return errors.Errorf("error parsing %s version %q: %v", name, rawVersion, err)
	}
	constraint, err := semver.NewConstraint(constraintString)
	if err != nil {
		return errors.Errorf("error parsing constraint: %v", err)
	}
	if !constraint.Check(version) {
		return errors.Errorf("found %s version %v but it failed constraint %v", name, version, constraint)
	}
	return nil
}
