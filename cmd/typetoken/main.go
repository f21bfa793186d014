// Command typetoken inspects and calls the members of a reflected class
// universe.
//
// The universe always contains the standard host classes. A class schema
// (typetoken.yaml, looked up from the current directory upwards or given
// with -schema), Go packages (-pkg) and .proto files (-proto) add to it.
//
//	typetoken members [flags] <type>
//	typetoken resolve [flags] <type> [method]
//	typetoken invoke  [flags] <type> [method]
//	typetoken scan    [flags] <package pattern>...
//	typetoken proto   [flags] <file.proto>...
//
// Types and values are written as YAML: String, {class: List, args:
// [String]}, [1, two, 3.0].
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/funvibe/typetoken/internal/config"
)

// exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type command struct {
	name    string
	summary string
	run     func(args []string, stdout, stderr io.Writer) int
}

var commands = []command{
	{"members", "list the constructors, methods and fields of a type", runMembers},
	{"resolve", "select the overload applicable to argument types", runResolve},
	{"invoke", "resolve an overload from argument values and call it", runInvoke},
	{"scan", "import Go packages and list their classes", runScan},
	{"proto", "import .proto files and list their classes", runProto},
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
			os.Exit(exitError)
		}
	}()

	if os.Getenv("TYPETOKEN_TEST_MODE") != "" {
		config.IsTestMode = true
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	if handleHelp(args, stdout) {
		return exitOK
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:], stdout, stderr)
		}
	}
	fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
	printUsage(stderr)
	return exitUsage
}

// handleHelp prints usage for -help, --help and help.
func handleHelp(args []string, w io.Writer) bool {
	switch args[0] {
	case "-h", "-help", "--help", "help":
		printUsage(w)
		return true
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: typetoken <command> [flags] [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'typetoken <command> -h' for the flags of a command.")
}

// verbose configures the standard logger for -v. Without it log output is
// discarded.
func verbose(on bool, stderr io.Writer) {
	log.SetFlags(0)
	log.SetPrefix("[typetoken] ")
	if on {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}
}

func fail(stderr io.Writer, err error) int {
	msg := err.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprintf(stderr, "Error: %s", msg)
	return exitError
}
