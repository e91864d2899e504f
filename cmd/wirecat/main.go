// wirecat encodes, decodes and inspects shape-codec data described by a
// YAML schema file.
//
//	wirecat encode  -s schema.yaml value.yaml > value.bin
//	wirecat decode  -s schema.yaml [--format yaml|cbor|diag] value.bin...
//	wirecat length  -s schema.yaml value.yaml
//	wirecat inspect -s schema.yaml [-i] value.bin
//	wirecat shapes  -s schema.yaml
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/shapefile"
	"github.com/wippyai/shape-codec/transcoder"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	name  string
	usage string
	run   func(*env, []string) error
}

var commands = []command{
	{"encode", "encode a YAML value document to binary", runEncode},
	{"decode", "decode binary files to YAML, CBOR or CBOR diagnostic notation", runDecode},
	{"length", "print the encoded length of a YAML value document", runLength},
	{"inspect", "show shape, size, digest and contents of a binary file", runInspect},
	{"shapes", "list the types of a schema", runShapes},
}

// env carries what every command shares: parsed global flags, the schema
// and the I/O streams.
type env struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	log     *zap.Logger
	schema  *shapefile.Schema
	codec   *transcoder.Codec
	root    *shape.Shape
	typeArg string
	output  string
	format  string
	digest  bool
	tui     bool
	maxLen  uint64
	budget  uint64
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: wirecat <command> -s <schema.yaml> [flags] [files]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.usage)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		return nil
	}
	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	var schemaPath string
	var verbose bool
	fs := pflag.NewFlagSet("wirecat "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&schemaPath, "schema", "s", "", "schema file (required)")
	fs.StringVarP(&e.typeArg, "type", "t", "", "type to use instead of the schema root")
	fs.StringVarP(&e.output, "output", "o", "", "write output to this file instead of stdout")
	fs.StringVarP(&e.format, "format", "f", "yaml", "decode output format: yaml, cbor or diag")
	fs.BoolVar(&e.digest, "digest", false, "print the BLAKE3 digest of each input")
	fs.BoolVarP(&e.tui, "interactive", "i", false, "open the interactive viewer (inspect)")
	fs.Uint64Var(&e.maxLen, "max-length", transcoder.MaxListLength, "largest sequence length accepted when decoding")
	fs.Uint64Var(&e.budget, "budget", 0, "cap decode allocations at this many bytes (0 means no cap)")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log codec activity to stderr")
	if err := fs.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	log := newLogger(verbose, stderr)
	defer log.Sync()
	e.log = log
	transcoder.SetLogger(log.Named("transcoder"))

	if schemaPath == "" {
		return fmt.Errorf("--schema is required")
	}
	var err error
	if e.schema, err = shapefile.Load(schemaPath); err != nil {
		return err
	}
	if cmd.name != "shapes" {
		if err := e.bind(); err != nil {
			return err
		}
	}
	log.Debug("running command",
		zap.String("command", cmd.name),
		zap.String("schema", schemaPath),
		zap.Strings("args", fs.Args()))
	return cmd.run(e, fs.Args())
}

// bind resolves the working type and builds its codec.
func (e *env) bind() error {
	e.root = e.schema.Root
	if e.typeArg != "" {
		s, err := e.schema.Lookup(e.typeArg)
		if err != nil {
			return err
		}
		e.root = s
	}
	if e.root == nil {
		return fmt.Errorf("schema has no root; pass --type (one of %s)", strings.Join(e.schema.Names, ", "))
	}
	codec, err := transcoder.NewCodec(e.root, transcoder.WithMaxLength(e.maxLen))
	if err != nil {
		return err
	}
	e.codec = codec
	return nil
}

func newLogger(verbose bool, w io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core, zap.Development())
}
