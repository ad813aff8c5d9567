/*
Package gself implements a small prototype-based object language in the
manner of Self.

Everything the interpreter manipulates is a tagged 64-bit Value: a small
integer, a float, or a reference into a generational copying heap. Objects
have no classes; each object points at a map describing its slot layout, and
computation happens by sending messages that the lookup engine resolves
against the receiver's slots and parent slots. Concurrency is by actors,
each owning its objects and exchanging asynchronous messages.

To embed the interpreter, create a VM and feed it parsed scripts:

	cfg, _ := gself.ConfigFromEnvironment()
	vm, err := gself.NewVM(cfg)
	if err != nil {
		// ...
	}
	defer vm.Shutdown()
	script, err := gself.Parse(strings.NewReader("system printLine: 3 + 4"), "<demo>")
	if err != nil {
		// ...
	}
	result, err := vm.RunScript(script)

A program is a sequence of statements evaluated against the lobby, the
global namespace object. Object literals create fresh objects:

	(| x <- 1. double = ( x * 2 ) |)

declares a mutable data slot x and a method double. Slots whose names end
in * are parents and contribute to message lookup. Blocks are closures:

	[| :n | n * n ] value: 7

evaluates to 49. The ^ statement returns from the enclosing method, even
from inside a block.

The cmd/gself command wraps the package in a file interpreter and a
read-eval-print loop.
*/
package gself

import (
	"io"

	"gself/internal"
)

type (
	// VM is one interpreter instance. See internal.VM.
	VM = internal.VM
	// Value is a tagged 64-bit datum.
	Value = internal.Value
	// Config carries the heap tuning knobs.
	Config = internal.Config
	// Heap is the generational copying allocator.
	Heap = internal.Heap
	// HeapStats is a snapshot of collector counters.
	HeapStats = internal.HeapStats
	// Script is a parsed program.
	Script = internal.Script
	// ParseError reports malformed source.
	ParseError = internal.ParseError
	// RuntimeError is an evaluation failure surfaced to the host.
	RuntimeError = internal.RuntimeError
	// SourceRange locates a syntactic element.
	SourceRange = internal.SourceRange
	// ActorID identifies an actor.
	ActorID = internal.ActorID
)

// NewVM builds and bootstraps an interpreter.
func NewVM(cfg Config) (*VM, error) {
	return internal.NewVM(cfg)
}

// Parse converts source into a script. label names the source in
// diagnostics.
func Parse(source io.Reader, label string) (*Script, error) {
	return internal.Parse(source, label)
}

// DumpAST renders a parsed script as an indented tree.
func DumpAST(s *Script) string {
	return internal.DumpAST(s)
}

// ConfigFromEnvironment loads the heap configuration named by the
// GSELF_HEAP_CONFIG environment variable, or the defaults if it is unset.
func ConfigFromEnvironment() (Config, error) {
	return internal.ConfigFromEnvironment()
}
