// Package directive builds the configuration string handed to the test
// runner's output-reconciliation listener.
package directive

import (
	"strings"
)

// Flag names understood by the listener.
const (
	FlagExpected               = "expected"
	FlagGenFastR               = "gen-fastr"
	FlagCheckExpected          = "check-expected"
	FlagGenExpected            = "gen-expected"
	FlagKeepTrailingWhitespace = "keep-trailing-whitespace"
	FlagGenExpectedQuiet       = "gen-expected-quiet"
	FlagGenDiff                = "gen-diff"
)

// Options selects the reconciliation modes for one test run.
type Options struct {
	// ExpectedDir is the directory holding the expected output file. Required.
	ExpectedDir string

	// GenFastROutput, when set, writes the actual output to this path.
	GenFastROutput string

	// CheckExpected compares output without updating the expected file.
	// It implies GenExpected.
	CheckExpected bool

	// GenExpected generates or updates the expected output file.
	GenExpected bool

	// KeepTrailingWhitespace and GenExpectedQuiet are only valid with
	// GenExpected.
	KeepTrailingWhitespace bool
	GenExpectedQuiet       bool

	// GenDiffOutput, when set, writes a difference file to this path.
	GenDiffOutput string
}

type entry struct {
	key      string
	value    string
	hasValue bool
}

// Directive is an ordered set of listener flags. The zero value is empty.
type Directive struct {
	entries []entry
}

// Set appends key=value, replacing the value if key is already present
// without changing its position.
func (d *Directive) Set(key, value string) {
	d.put(entry{key: key, value: value, hasValue: true})
}

// Flag appends a bare key.
func (d *Directive) Flag(key string) {
	d.put(entry{key: key})
}

func (d *Directive) put(e entry) {
	for i := range d.entries {
		if d.entries[i].key == e.key {
			d.entries[i] = e
			return
		}
	}
	d.entries = append(d.entries, e)
}

// String serializes the directive as comma-joined key=value or bare key
// tokens in insertion order.
func (d *Directive) String() string {
	if d == nil {
		return ""
	}
	tokens := make([]string, len(d.entries))
	for i, e := range d.entries {
		if e.hasValue {
			tokens[i] = e.key + "=" + e.value
		} else {
			tokens[i] = e.key
		}
	}
	return strings.Join(tokens, ",")
}

// Build validates opts and returns the directive for them. CheckExpected
// forces GenExpected. The expected path is always the first token.
func Build(opts Options) (*Directive, error) {
	if opts.ExpectedDir == "" {
		return nil, &ConfigurationError{Msg: "expected output directory is required"}
	}
	if opts.CheckExpected {
		opts.GenExpected = true
	}
	if !opts.GenExpected {
		if opts.KeepTrailingWhitespace {
			return nil, &ConfigurationError{Msg: "--keep-trailing-whitespace requires --gen-expected-output"}
		}
		if opts.GenExpectedQuiet {
			return nil, &ConfigurationError{Msg: "--gen-expected-quiet requires --gen-expected-output"}
		}
	}
	for _, p := range [][2]string{
		{FlagExpected, opts.ExpectedDir},
		{FlagGenFastR, opts.GenFastROutput},
		{FlagGenDiff, opts.GenDiffOutput},
	} {
		if strings.Contains(p[1], ",") {
			return nil, &ConfigurationError{Msg: p[0] + " path must not contain ',': " + p[1]}
		}
	}

	d := &Directive{}
	d.Set(FlagExpected, opts.ExpectedDir)
	if opts.GenFastROutput != "" {
		d.Set(FlagGenFastR, opts.GenFastROutput)
	}
	if opts.CheckExpected {
		d.Flag(FlagCheckExpected)
	}
	if opts.GenExpected {
		d.Flag(FlagGenExpected)
		if opts.KeepTrailingWhitespace {
			d.Flag(FlagKeepTrailingWhitespace)
		}
		if opts.GenExpectedQuiet {
			d.Flag(FlagGenExpectedQuiet)
		}
	}
	if opts.GenDiffOutput != "" {
		d.Set(FlagGenDiff, opts.GenDiffOutput)
	}
	return d, nil
}

// RunListener returns the --runlistener argument: class, followed by
// ":directive" when the directive is non-empty.
func RunListener(class string, d *Directive) string {
	s := d.String()
	if s == "" {
		return class
	}
	return class + ":" + s
}
