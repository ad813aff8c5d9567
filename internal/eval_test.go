package internal

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

var sharedVM struct {
	once sync.Once
	vm   *VM
}

func testVM(t *testing.T) *VM {
	t.Helper()
	sharedVM.once.Do(func() {
		vm, err := NewVM(Config{})
		if err != nil {
			panic(err)
		}
		sharedVM.vm = vm
	})
	return sharedVM.vm
}

func runSrc(t *testing.T, vm *VM, src string) (Value, error) {
	t.Helper()
	s, err := Parse(strings.NewReader(src), "test")
	if err != nil {
		t.Fatalf("could not parse %q: %v", src, err)
	}
	return vm.RunScript(s)
}

func wantInteger(t *testing.T, vm *VM, src string, want int64) {
	t.Helper()
	v, err := runSrc(t, vm, src)
	if err != nil {
		t.Errorf("%q failed: %v", src, err)
		return
	}
	if !v.IsInteger() || v.Integer() != want {
		t.Errorf("%q = %s, want %d", src, vm.FormatValue(v), want)
	}
}

func wantFormatted(t *testing.T, vm *VM, src, want string) {
	t.Helper()
	v, err := runSrc(t, vm, src)
	if err != nil {
		t.Errorf("%q failed: %v", src, err)
		return
	}
	if got := vm.FormatValue(v); got != want {
		t.Errorf("%q = %s, want %s", src, got, want)
	}
}

func wantError(t *testing.T, vm *VM, src string) {
	t.Helper()
	if _, err := runSrc(t, vm, src); err == nil {
		t.Errorf("%q succeeded, want an error", src)
	}
}

func TestEvalArithmetic(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "3 + 4", 7)
	wantInteger(t, vm, "2 + 3 * 4", 20)
	wantInteger(t, vm, "10 - 2 - 3", 5)
	wantInteger(t, vm, "7 / 2", 3)
	wantInteger(t, vm, "10 % 3", 1)
	wantInteger(t, vm, "-5 + 2", -3)
	wantFormatted(t, vm, "1.5 + 2.25", "3.75")
	wantFormatted(t, vm, "1.5 + 2", "3.5")
	wantFormatted(t, vm, "2.9 truncated", "2")
	wantFormatted(t, vm, "3 asFloat", "3")
	wantError(t, vm, "1 / 0")
	wantError(t, vm, "1 % 0")
}

func TestEvalComparisons(t *testing.T) {
	vm := testVM(t)
	wantFormatted(t, vm, "3 < 4", "true")
	wantFormatted(t, vm, "4 <= 3", "false")
	wantFormatted(t, vm, "3 = 3", "true")
	wantFormatted(t, vm, "1.5 < 2", "true")
	wantFormatted(t, vm, "(3 > 4) not", "true")
}

func TestEvalBooleans(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "3 < 4 ifTrue: [ 1 ] False: [ 2 ]", 1)
	wantInteger(t, vm, "3 > 4 ifTrue: [ 1 ] False: [ 2 ]", 2)
	wantFormatted(t, vm, "(3 < 4) and: [ 4 < 5 ]", "true")
	wantFormatted(t, vm, "(3 > 4) and: [ 4 < 5 ]", "false")
	wantFormatted(t, vm, "(3 > 4) or: [ 4 < 5 ]", "true")
	wantFormatted(t, vm, "(3 < 4) ifFalse: [ 1 ]", "nil")
	wantFormatted(t, vm, "true printString", "'true'")
}

func TestEvalStrings(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "'abc' size", 3)
	wantInteger(t, vm, "('a' , 'bc') size", 3)
	wantFormatted(t, vm, "'foo' , 'bar'", "'foobar'")
	wantFormatted(t, vm, "'abc' = 'abc'", "true")
	wantFormatted(t, vm, "'abc' = 'abd'", "false")
	wantInteger(t, vm, "'abc' byteAt: 1", 98)
	wantFormatted(t, vm, "'aBc' asUppercase", "'ABC'")
	wantFormatted(t, vm, "'aBc' asLowercase", "'abc'")
	wantFormatted(t, vm, "'abc' copySize: 2", "'ab'")
	wantFormatted(t, vm, "'abc' copySize: 0", "''")
	wantInteger(t, vm, "'' size", 0)
	wantFormatted(t, vm, "7 printString", "'7'")
	// A copy must be a proper prefix; the full length is out of range.
	wantError(t, vm, "'abc' copySize: 3")
	wantError(t, vm, "'abc' byteAt: 9")
	wantError(t, vm, "'abc' byteAt: -1")
	wantError(t, vm, "'abc' byteAt: 0 Put: 300")
}

func TestEvalObjectSlots(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "(| x <- 5 |) x", 5)
	wantInteger(t, vm, "(| k = 9 |) k", 9)
	wantInteger(t, vm, "(| x <- 5. double = ( x * 2 ) |) double", 10)
	wantInteger(t, vm, "(| x <- 1. bump = ( x: x + 1. x ) |) bump", 2)
	wantInteger(t, vm, "(| at: i Put: v = ( i + v ) |) at: 3 Put: 4", 7)
	wantInteger(t, vm, "(| + n = ( n + 1 ) |) + 5", 6)
	// Assignment answers the receiver, so sends can chain through it.
	wantInteger(t, vm, "((| x <- 1 |) x: 8) x", 8)
	wantError(t, vm, "(| k = 5 |) k: 9")
	wantError(t, vm, "(| x <- 1 |) y")
	wantError(t, vm, "(| x <- 1 |) x: 1 And: 2")
}

func TestEvalParentDelegation(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "(| p* = (| answer = ( 42 ) |) |) answer", 42)
	// The child's own slot shadows the parent's.
	wantInteger(t, vm, "(| p* = (| x = ( 1 ) |). x = ( 2 ) |) x", 2)
	// Parents are searched in declaration order.
	wantInteger(t, vm, "(| a* = (| v = ( 1 ) |). b* = (| v = ( 2 ) |) |) v", 1)
}

func TestEvalObjectLiteralCode(t *testing.T) {
	vm := testVM(t)
	// Trailing code runs against the fresh object, and its last value is
	// discarded in favor of the object itself.
	wantInteger(t, vm, "(| x <- 0 | x: 7) x", 7)
	wantFormatted(t, vm, "(| x <- 0 | x: 7)", "an object")
	wantFormatted(t, vm, "()", "an object")
}

func TestEvalBlocks(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "[ 5 ] value", 5)
	wantInteger(t, vm, "[| :n | n * n ] value: 7", 49)
	wantInteger(t, vm, "[| :a. :b | a + b ] value: 3 With: 4", 7)
	wantInteger(t, vm, "[| :a. t | t: a + 1. t ] value: 5", 6)
	wantFormatted(t, vm, "[] value", "nil")
	wantError(t, vm, "[| :n | n ] value")
	wantError(t, vm, "3 value")
}

func TestEvalClosuresShareLocals(t *testing.T) {
	vm := testVM(t)
	src := "(| run = ( | c <- 0 | [ c: c + 1 ] value. [ c: c + 1 ] value. c ) |) run"
	wantInteger(t, vm, src, 2)
}

func TestEvalWhileTrue(t *testing.T) {
	vm := testVM(t)
	src := "(| run = ( | i <- 0 | [ i < 5 ] whileTrue: [ i: i + 1 ]. i ) |) run"
	wantInteger(t, vm, src, 5)
	wantError(t, vm, "[ 3 ] whileTrue: [ 4 ]")
}

func TestEvalNonlocalReturn(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "(| m = ( [ ^ 5 ] value. 6 ) |) m", 5)
	wantInteger(t, vm, "(| m = ( 3 < 4 ifTrue: [ ^ 1 ] False: [ ^ 2 ]. 9 ) |) m", 1)
	// A script-level return ends the script early.
	wantInteger(t, vm, "^ 3. 4", 3)
	// Returning through a method that already returned is an error.
	wantError(t, vm, "(| m = ( [ ^ 1 ] ) |) m value")
}

func TestEvalSelf(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "(| x <- 3. me = ( self ) |) me x", 3)
	wantFormatted(t, vm, "self", "an object")
}

func TestEvalMethodsReachLobby(t *testing.T) {
	vm := testVM(t)
	// Globals like traits and system stay visible inside method bodies,
	// nested blocks, and object-literal code.
	wantInteger(t, vm, "(| m = ( (traits array new: 2) size ) |) m", 2)
	wantFormatted(t, vm, "(| m = ( system is: 1 Identical: 1 ) |) m", "true")
	wantInteger(t, vm, "(| m = ( [ (traits array new: 3) size ] value ) |) m", 3)
	wantInteger(t, vm, "(| x <- 0 | x: (traits array new: 1) size) x", 1)
	// The receiver's own slots shadow lobby names.
	wantInteger(t, vm, "(| system = ( 9 ). m = ( system ) |) m", 9)
}

func TestEvalClone(t *testing.T) {
	vm := testVM(t)
	src := "(| run = ( | a. b | a: (| x <- 1 |). b: (system clone: a). b x: 5. a x ) |) run"
	wantInteger(t, vm, src, 1)
	wantInteger(t, vm, "system clone: 7", 7)
	wantFormatted(t, vm, "(system clone: 'hi') = 'hi'", "true")
}

func TestEvalIdentity(t *testing.T) {
	vm := testVM(t)
	wantFormatted(t, vm, "system is: 3 Identical: 3", "true")
	wantFormatted(t, vm, "system is: nil Identical: nil", "true")
	wantFormatted(t, vm, "system is: (| |) Identical: (| |)", "false")
	// Two equal strings are distinct objects.
	wantFormatted(t, vm, "system is: 'a' Identical: 'a'", "false")
}

func TestEvalArrays(t *testing.T) {
	vm := testVM(t)
	wantInteger(t, vm, "(traits array new: 3) size", 3)
	src := "(| run = ( | a | a: (traits array new: 3). a at: 0 Put: 7. (a at: 0) + a size ) |) run"
	wantInteger(t, vm, src, 10)
	wantFormatted(t, vm, "(traits array new: 2) at: 1", "nil")
	wantFormatted(t, vm, "traits array new: 2", "array(2)")
	wantError(t, vm, "(traits array new: 1) at: 5")
	wantError(t, vm, "traits array new: -1")
}

func TestEvalPrinting(t *testing.T) {
	vm := testVM(t)
	var buf bytes.Buffer
	out := vm.Out
	vm.Out = &buf
	defer func() { vm.Out = out }()
	if _, err := runSrc(t, vm, "system printLine: 'hi'. 'raw' print"); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "'hi'\nraw" {
		t.Errorf("printed %q", got)
	}
}

func TestEvalErrorPrimitive(t *testing.T) {
	vm := testVM(t)
	_, err := runSrc(t, vm, "system error: 'boom'")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("system error: gave %v", err)
	}
}

func TestEvalExpectations(t *testing.T) {
	vm := testVM(t)
	wantFormatted(t, vm, "[ system error: 'x' ] expectToFail: 'should fail'", "nil")
	wantInteger(t, vm, "[ 3 ] expectToNotFail: 'fine'", 3)
	wantError(t, vm, "[ 3 ] expectToFail: 'wanted a failure'")
	wantError(t, vm, "[ system error: 'x' ] expectToNotFail: 'wanted success'")
}

func TestEvalCollectGarbageKeepsRoots(t *testing.T) {
	vm := testVM(t)
	src := "(| run = ( | s | s: 'still here'. system collectGarbage. s ) |) run"
	wantFormatted(t, vm, src, "'still here'")
	wantError(t, vm, "'x' size Zork: 1")
	v, err := runSrc(t, vm, "system heapStats")
	if err != nil {
		t.Fatal(err)
	}
	b, ok := ByteArrayAt(v)
	if !ok || !strings.Contains(b.String(), "full=") {
		t.Errorf("heapStats = %s", vm.FormatValue(v))
	}
}

func TestLookupCycleTerminates(t *testing.T) {
	vm := testVM(t)
	v, err := runSrc(t, vm, "(| a* <- nil |)")
	if err != nil {
		t.Fatal(err)
	}
	o := vm.Heap.Track(v)
	defer o.Release()
	vm.setSlot(o.Get(), "a", o.Get())
	r := vm.Lookup(o.Get(), "zork")
	if r.Kind != LookupMissing {
		t.Errorf("lookup on a self-parented object found %d", r.Kind)
	}
	// A two-object cycle terminates as well.
	w, err := runSrc(t, vm, "(| b* <- nil |)")
	if err != nil {
		t.Fatal(err)
	}
	p := vm.Heap.Track(w)
	defer p.Release()
	vm.setSlot(o.Get(), "a", p.Get())
	vm.setSlot(p.Get(), "b", o.Get())
	if r := vm.Lookup(o.Get(), "zork"); r.Kind != LookupMissing {
		t.Errorf("lookup on a parent cycle found %d", r.Kind)
	}
	if r := vm.Lookup(o.Get(), "b"); r.Kind != LookupValue {
		t.Errorf("lookup of a parent slot on a cycle found %d", r.Kind)
	}
}

func TestLookupKinds(t *testing.T) {
	vm := testVM(t)
	v, err := runSrc(t, vm, "(| x <- 4. m = ( x ) |)")
	if err != nil {
		t.Fatal(err)
	}
	o := vm.Heap.Track(v)
	defer o.Release()
	if r := vm.Lookup(o.Get(), "x"); r.Kind != LookupValue || r.Value.Integer() != 4 {
		t.Errorf("data slot lookup = %+v", r)
	}
	if r := vm.Lookup(o.Get(), "m"); r.Kind != LookupMethod {
		t.Errorf("method slot lookup kind = %d", r.Kind)
	}
	if r := vm.Lookup(o.Get(), "x:"); r.Kind != LookupAssignment {
		t.Errorf("assignment lookup kind = %d", r.Kind)
	}
	if r := vm.Lookup(o.Get(), "m:"); r.Kind != LookupMissing {
		t.Errorf("assignment to a constant slot found %d", r.Kind)
	}
	if r := vm.Lookup(IntegerValue(3), "+"); r.Kind != LookupMethod {
		t.Errorf("integer trait lookup kind = %d", r.Kind)
	}
}
