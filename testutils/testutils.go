// Package testutils provides utilities for testing gself code in Go.
package testutils

import (
	"strings"
	"sync"
	"testing"

	"gself"
)

// testVM is the VM used for all tests.
var testVM *gself.VM

var testVMInit sync.Once

// TestingVM returns a VM for testing scripts. The VM is shared by all tests
// that use this package.
func TestingVM() *gself.VM {
	testVMInit.Do(ResetTestingVM)
	return testVM
}

// ResetTestingVM reinitializes the VM returned by TestingVM. It is not safe
// to call this in parallel tests.
func ResetTestingVM() {
	vm, err := gself.NewVM(gself.Config{})
	if err != nil {
		panic(err)
	}
	testVM = vm
}

// A SourceTestCase is a test case containing source code and a predicate to
// check the result.
type SourceTestCase struct {
	// Source is the code to execute.
	Source string
	// Pass is a predicate taking the result of executing Source. If Pass
	// returns false, then the test fails.
	Pass func(vm *gself.VM, result gself.Value, err error) bool
}

// TestFunc returns a test function for the test case. This uses TestingVM
// to parse and execute the code.
func (c SourceTestCase) TestFunc(name string) func(*testing.T) {
	return func(t *testing.T) {
		vm := TestingVM()
		script, err := gself.Parse(strings.NewReader(c.Source), name)
		if err != nil {
			t.Fatalf("could not parse %q: %v", c.Source, err)
		}
		r, err := vm.RunScript(script)
		if !c.Pass(vm, r, err) {
			if err != nil {
				t.Errorf("%q failed: %v", c.Source, err)
			} else {
				t.Errorf("%q produced wrong result; got %s", c.Source, vm.FormatValue(r))
			}
		}
	}
}

// PassSuccess returns a Pass function that accepts any non-error result.
func PassSuccess() func(*gself.VM, gself.Value, error) bool {
	return func(vm *gself.VM, result gself.Value, err error) bool {
		return err == nil
	}
}

// PassFailure returns a Pass function that requires the script to fail.
func PassFailure() func(*gself.VM, gself.Value, error) bool {
	return func(vm *gself.VM, result gself.Value, err error) bool {
		return err != nil
	}
}

// PassInteger returns a Pass function that predicates on an integer result.
func PassInteger(want int64) func(*gself.VM, gself.Value, error) bool {
	return func(vm *gself.VM, result gself.Value, err error) bool {
		return err == nil && result.IsInteger() && result.Integer() == want
	}
}

// PassFormatted returns a Pass function that predicates on the rendered
// form of the result, as FormatValue produces it.
func PassFormatted(want string) func(*gself.VM, gself.Value, error) bool {
	return func(vm *gself.VM, result gself.Value, err error) bool {
		return err == nil && vm.FormatValue(result) == want
	}
}
