// Command gself runs programs in a small Self-like language, or starts a
// read-eval-print loop when standard input is a terminal.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"gself"

	_ "github.com/tliron/commonlog/simple"
)

const usage = `gself is an interpreter for a small Self-like language.

Usage:
	gself [--dump-ast] [<path>]

Options:
	-A --dump-ast  Print the parsed program instead of running it.
	-h --help      Show this help.

With no path, gself reads a program from standard input, or starts a
read-eval-print loop if standard input is a terminal. The heap can be tuned
with a YAML file named by the GSELF_HEAP_CONFIG environment variable, and
GSELF_VERBOSE raises the log verbosity.`

func main() {
	os.Exit(run())
}

func run() int {
	verbosity, _ := strconv.Atoi(os.Getenv("GSELF_VERBOSE"))
	commonlog.Configure(verbosity, nil)
	opts, err := docopt.ParseDoc(usage)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	dump, _ := opts.Bool("--dump-ast")
	path, _ := opts.String("<path>")
	cfg, err := gself.ConfigFromEnvironment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gself:", err)
		return 1
	}
	vm, err := gself.NewVM(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gself:", err)
		return 1
	}
	defer vm.Shutdown()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gself:", err)
			return 1
		}
		defer f.Close()
		return runSource(vm, f, path, dump)
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return repl(vm, dump)
	}
	return runSource(vm, os.Stdin, "<stdin>", dump)
}

func runSource(vm *gself.VM, src io.Reader, label string, dump bool) int {
	script, err := gself.Parse(src, label)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if dump {
		fmt.Print(gself.DumpAST(script))
		return 0
	}
	if _, err := vm.RunScript(script); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func repl(vm *gself.VM, dump bool) int {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	for {
		src, err := line.Prompt("gself> ")
		if err != nil {
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		line.AppendHistory(src)
		script, err := gself.Parse(strings.NewReader(src), "<repl>")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if dump {
			fmt.Print(gself.DumpAST(script))
			continue
		}
		v, err := vm.RunScript(script)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(vm.FormatValue(v))
	}
}
