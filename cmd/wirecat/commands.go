package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	shapecodec "github.com/wippyai/shape-codec"
	"github.com/wippyai/shape-codec/shapefile"
)

var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wirecat: CBOR encoder initialization failed: " + err.Error())
	}
}

func (e *env) readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(e.stdin)
	}
	return os.ReadFile(path)
}

func (e *env) writeOutput(data []byte) error {
	if e.output != "" {
		return os.WriteFile(e.output, data, 0o644)
	}
	_, err := e.stdout.Write(data)
	return err
}

func (e *env) allocator() shapecodec.Allocator {
	if e.budget == 0 {
		return shapecodec.Heap
	}
	return shapecodec.NewBudget(e.budget)
}

func (e *env) printDigest(data []byte, name string) {
	if !e.digest {
		return
	}
	sum := blake3.Sum256(data)
	fmt.Fprintf(e.stderr, "%s  %s\n", hex.EncodeToString(sum[:]), name)
}

func single(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "-", nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("expected one input, got %d", len(args))
	}
}

func runEncode(e *env, args []string) error {
	path, err := single(args)
	if err != nil {
		return err
	}
	doc, err := e.readInput(path)
	if err != nil {
		return err
	}
	v, err := shapefile.ParseValue(doc, e.root)
	if err != nil {
		return err
	}
	data, err := e.codec.Marshal(v)
	if err != nil {
		return err
	}
	e.log.Debug("encoded", zap.String("input", path), zap.Int("bytes", len(data)))
	e.printDigest(data, path)
	return e.writeOutput(data)
}

func runLength(e *env, args []string) error {
	path, err := single(args)
	if err != nil {
		return err
	}
	doc, err := e.readInput(path)
	if err != nil {
		return err
	}
	v, err := shapefile.ParseValue(doc, e.root)
	if err != nil {
		return err
	}
	n, err := e.codec.EncodedLength(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, n)
	return nil
}

// render turns one binary input into the selected output format.
func (e *env) render(data []byte) ([]byte, error) {
	v, err := e.codec.Unmarshal(data, e.allocator())
	if err != nil {
		return nil, err
	}
	switch e.format {
	case "yaml":
		return shapefile.Marshal(e.root, v)
	case "cbor", "diag":
		plain, err := shapefile.Plain(e.root, v)
		if err != nil {
			return nil, err
		}
		out, err := cborMode.Marshal(plain)
		if err != nil {
			return nil, err
		}
		if e.format == "cbor" {
			return out, nil
		}
		diag, err := cbor.Diagnose(out)
		if err != nil {
			return nil, err
		}
		return []byte(diag + "\n"), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want yaml, cbor or diag)", e.format)
	}
}

// runDecode decodes every input concurrently and writes the results in
// argument order. YAML documents are separated by "---".
func runDecode(e *env, args []string) error {
	if len(args) == 0 {
		args = []string{"-"}
	}
	inputs := make([][]byte, len(args))
	outputs := make([][]byte, len(args))

	var g errgroup.Group
	g.SetLimit(8)
	for i, path := range args {
		g.Go(func() error {
			data, err := e.readInput(path)
			if err != nil {
				return err
			}
			out, err := e.render(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			inputs[i] = data
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var buf []byte
	for i, out := range outputs {
		e.printDigest(inputs[i], args[i])
		if e.format == "yaml" && i > 0 {
			buf = append(buf, "---\n"...)
		}
		buf = append(buf, out...)
	}
	e.log.Debug("decoded", zap.Int("inputs", len(args)), zap.Int("bytes", len(buf)))
	return e.writeOutput(buf)
}

type report struct {
	name   string
	shape  string
	size   int
	digest string
	body   string
	hex    string
}

func (e *env) inspect(path string) (*report, error) {
	data, err := e.readInput(path)
	if err != nil {
		return nil, err
	}
	v, err := e.codec.Unmarshal(data, e.allocator())
	if err != nil {
		return nil, err
	}
	body, err := shapefile.Marshal(e.root, v)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(data)
	return &report{
		name:   path,
		shape:  e.root.String(),
		size:   len(data),
		digest: hex.EncodeToString(sum[:]),
		body:   string(body),
		hex:    hex.Dump(data),
	}, nil
}

func runInspect(e *env, args []string) error {
	path, err := single(args)
	if err != nil {
		return err
	}
	r, err := e.inspect(path)
	if err != nil {
		return err
	}
	if e.tui {
		if !isTerminal(e.stdout) {
			return fmt.Errorf("--interactive needs a terminal")
		}
		return runInteractive(r)
	}

	styled := isTerminal(e.stdout)
	label := func(s string) string {
		if styled {
			return labelStyle.Render(s)
		}
		return s
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label("file:  "), r.name)
	fmt.Fprintf(&b, "%s %s\n", label("shape: "), r.shape)
	fmt.Fprintf(&b, "%s %d bytes\n", label("size:  "), r.size)
	fmt.Fprintf(&b, "%s %s\n", label("blake3:"), r.digest)
	b.WriteString("---\n")
	b.WriteString(r.body)
	_, err = io.WriteString(e.stdout, b.String())
	return err
}

func runShapes(e *env, _ []string) error {
	styled := isTerminal(e.stdout)
	width := 0
	for _, name := range e.schema.Names {
		width = max(width, len(name))
	}
	for _, name := range e.schema.Names {
		s := e.schema.Types[name]
		marker := ""
		if s == e.schema.Root {
			marker = " (root)"
		}
		line := fmt.Sprintf("%-*s  %s%s", width, name, s.String(), marker)
		if styled {
			line = typeStyle.Render(fmt.Sprintf("%-*s", width, name)) + "  " + s.String() + helpStyle.Render(marker)
		}
		fmt.Fprintln(e.stdout, line)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
