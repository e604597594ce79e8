// yarc inspects, checks and produces yaml-archive documents.
//
// Files ending in .zst are compressed with zstd; "-" reads stdin or writes
// stdout.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/yaml-archive/archive"
)

type options struct {
	flags       uint32
	indent      int
	verbose     bool
	interactive bool
	noHeader    bool
	hex         bool
	noTracking  bool
	noTags      bool
}

// config merges the bit-set form with the individual switches.
func (o *options) config() archive.Config {
	cfg := archive.Flags(o.flags).Config()
	cfg.NoHeader = cfg.NoHeader || o.noHeader
	cfg.NoTracking = cfg.NoTracking || o.noTracking
	cfg.NoTags = cfg.NoTags || o.noTags
	if o.hex {
		cfg.Binary = archive.BinaryHex
	}
	cfg.Indent = o.indent
	return cfg
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("yarc", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Uint32Var(&opts.flags, "flags", 0, "archive flag bits (1 no-header, 4 no-tag-checking, 8 no-tracking, 16 hex, 32 no-tags)")
	flagSet.IntVar(&opts.indent, "indent", 2, "indentation width of written archives")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log archive sessions to stderr")
	flagSet.BoolVarP(&opts.interactive, "interactive", "i", false, "browse the archive in a TUI")
	flagSet.BoolVar(&opts.noHeader, "no-header", false, "write archives without the header")
	flagSet.BoolVar(&opts.hex, "hex", false, "write binary values as hex")
	flagSet.BoolVar(&opts.noTracking, "no-tracking", false, "write shared pointers by value")
	flagSet.BoolVar(&opts.noTags, "no-tags", false, "write records without type tags")
	flagSet.Usage = func() { usage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
		archive.SetLogger(logger)
	}

	if f := archive.Flags(opts.flags); f != f.Known() {
		fmt.Fprintf(stderr, "warning: ignoring unknown archive flag bits %#x\n", uint32(f&^f.Known()))
	}

	rest := flagSet.Args()
	if opts.interactive {
		if len(rest) != 1 {
			usage(stderr, flagSet)
			return fmt.Errorf("interactive mode takes one file")
		}
		return runInteractive(rest[0])
	}
	if len(rest) != 2 {
		usage(stderr, flagSet)
		return fmt.Errorf("expected a command and a file")
	}

	cmd, path := rest[0], rest[1]
	switch cmd {
	case "inspect":
		return inspectFile(path, stdout)
	case "check":
		return checkFile(path, stdout)
	case "sample":
		return writeSample(path, opts.config())
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func usage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: yarc inspect <file>   print the entry tree")
	fmt.Fprintln(w, "       yarc check <file>     validate and count items")
	fmt.Fprintln(w, "       yarc sample <file>    write a demonstration archive")
	fmt.Fprintln(w, "       yarc -i <file>        interactive mode")
	fmt.Fprintln(w)
	flagSet.PrintDefaults()
}
