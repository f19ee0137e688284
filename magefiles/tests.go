//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Tests runs the unit tests with the race detector and writes a coverage profile.
func Tests() error {
	mg.Deps(goCheck)
	if err := goRun("test", "-race", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	out, err := goOutput("tool", "cover", "-func=coverage.out")
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// TestsNoRace runs the unit tests without the race detector.
func TestsNoRace() error {
	mg.Deps(goCheck)
	return sh.RunV("go", "test", "./...")
}
