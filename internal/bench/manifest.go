package bench

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSuiteName names the built-in benchmark list.
const DefaultSuiteName = "default"

// DefaultSuite returns the standard benchmark ids.
func DefaultSuite() []string {
	return []string{
		"shootout.binarytrees", "shootout.fannkuchredux", "shootout.fasta", "shootout.fastaredux",
		"shootout.knucleotide", "shootout.mandelbrot-ascii", "shootout.nbody", "shootout.pidigits",
		"shootout.regexdna", "shootout.reversecomplement", "shootout.spectralnorm",
		"b25.bench.prog-1", "b25.bench.prog-2", "b25.bench.prog-3", "b25.bench.prog-4", "b25.bench.prog-5",
	}
}

// Manifest declares named benchmark suites.
//
//	suites:
//	  quick: [shootout.fasta, shootout.nbody]
type Manifest struct {
	Suites map[string][]string `yaml:"suites"`
}

// LoadManifest reads a YAML manifest. An empty path yields a manifest with
// only the default suite.
func LoadManifest(path string) (*Manifest, error) {
	m := &Manifest{Suites: map[string][]string{}}
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Suites == nil {
		m.Suites = map[string][]string{}
	}
	for name, ids := range m.Suites {
		if len(ids) == 0 {
			return nil, fmt.Errorf("manifest %s: suite %q is empty", path, name)
		}
	}
	return m, nil
}

// Suite returns the ids of a named suite. The default suite can be
// overridden by the manifest.
func (m *Manifest) Suite(name string) ([]string, error) {
	if ids, ok := m.Suites[name]; ok {
		return append([]string(nil), ids...), nil
	}
	if name == DefaultSuiteName {
		return DefaultSuite(), nil
	}
	return nil, fmt.Errorf("unknown benchmark suite %q (known: %s)", name, strings.Join(m.Names(), ", "))
}

// Names lists the available suites, sorted.
func (m *Manifest) Names() []string {
	names := []string{DefaultSuiteName}
	for name := range m.Suites {
		if name != DefaultSuiteName {
			names = append(names, name)
		}
	}
	sort.Strings(names[1:])
	return names
}

// Expand replaces every "@suite" argument with the suite's ids. Other
// arguments are benchmark ids and pass through unchanged.
func (m *Manifest) Expand(args []string) ([]string, error) {
	var ids []string
	for _, arg := range args {
		name, isSuite := strings.CutPrefix(arg, "@")
		if !isSuite {
			ids = append(ids, arg)
			continue
		}
		suite, err := m.Suite(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, suite...)
	}
	return ids, nil
}
