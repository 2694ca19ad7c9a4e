package suite

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/aristath/rgate/internal/backend"
)

// Builtin analysis defaults.
const (
	NodesProject    = "com.oracle.truffle.r.nodes"
	AnalyzerClass   = "com.oracle.truffle.r.test.tools.AnalyzeRBuiltin"
	builtinMarker   = "@RBuiltin"
	factorySuffix   = "Factory"
	classListSuffix = ".classes"
)

// RBCheckOptions selects the reports of the builtin analyzer.
type RBCheckOptions struct {
	CheckInternal      bool
	UnknownToGnuR      bool
	Todo               bool
	NoEvalArgs         bool
	Visibility         bool
	PrintGnuRFunctions string
}

func (o RBCheckOptions) args() []string {
	var args []string
	for _, f := range []struct {
		on   bool
		flag string
	}{
		{o.CheckInternal, "--check-internal"},
		{o.UnknownToGnuR, "--unknown-to-gnur"},
		{o.Todo, "--todo"},
		{o.NoEvalArgs, "--no-eval-args"},
		{o.Visibility, "--visibility"},
	} {
		if f.on {
			args = append(args, f.flag)
		}
	}
	if o.PrintGnuRFunctions != "" {
		args = append(args, "--printGnuRFunctions", o.PrintGnuRFunctions)
	}
	return args
}

// BuiltinClass is a class annotated as an R builtin.
type BuiltinClass struct {
	Name string // Binary name, inner classes joined with '$'
	Path string
}

var (
	packageLine = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;`)
	classDecl   = regexp.MustCompile(`\bclass\s+(\w+)`)
)

// BuiltinClasses scans the nodes project sources for builtin classes.
// Generated factories are left out. The result is sorted by name.
func (s *Suite) BuiltinClasses() ([]BuiltinClass, error) {
	root := filepath.Join(s.cfg.Suite.Dir, NodesProject, "src")
	var classes []BuiltinClass

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".java" {
			return nil
		}
		found, err := scanBuiltins(path)
		if err != nil {
			return err
		}
		classes = append(classes, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

// scanBuiltins returns the classes in one source file whose declaration
// follows the builtin annotation.
func scanBuiltins(path string) ([]BuiltinClass, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	outer := strings.TrimSuffix(filepath.Base(path), ".java")
	if strings.HasSuffix(outer, factorySuffix) {
		return nil, nil
	}

	var (
		pkg     string
		pending bool
		classes []BuiltinClass
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := packageLine.FindStringSubmatch(line); m != nil {
			pkg = m[1] + "."
			continue
		}
		if strings.Contains(line, builtinMarker) {
			pending = true
		}
		if !pending {
			continue
		}
		m := classDecl.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pending = false
		name := pkg + outer
		if m[1] != outer {
			name += "$" + m[1]
		}
		classes = append(classes, BuiltinClass{Name: name, Path: path})
	}
	return classes, scanner.Err()
}

// RBCheck checks the builtins against GnuR. The analyzer reads the builtin
// classes from a temporary class list, removed when the check returns.
func (s *Suite) RBCheck(ctx context.Context, opts RBCheckOptions, out io.Writer) error {
	classes, err := s.BuiltinClasses()
	if err != nil {
		return err
	}

	list, err := writeClassList(classes)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	cp, err := s.Classpath(ctx, s.cfg.Suite.TestProject)
	if err != nil {
		return err
	}

	args := []string{"-cp", cp, AnalyzerClass}
	args = append(args, opts.args()...)
	args = append(args, list)

	_, err = s.inv.Invoke(ctx, backend.Invocation{
		Name:           s.cfg.Suite.Java,
		Args:           args,
		Dir:            s.cfg.Suite.Dir,
		FatalOnNonZero: true,
		Stdout:         out,
		Stderr:         out,
	})
	if err != nil {
		return fmt.Errorf("builtin analysis: %w", err)
	}
	return nil
}

func writeClassList(classes []BuiltinClass) (string, error) {
	f, err := os.CreateTemp("", "rgate-*"+classListSuffix)
	if err != nil {
		return "", fmt.Errorf("creating class list: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, c := range classes {
		fmt.Fprintf(w, "%s,%s\n", c.Name, c.Path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing class list: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing class list: %w", err)
	}
	return f.Name(), nil
}
