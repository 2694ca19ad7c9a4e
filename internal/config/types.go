package config

// SuiteConfig locates the FastR checkout and the tools used to build it.
type SuiteConfig struct {
	Dir            string `json:"dir"`                       // Suite checkout, exported as R_HOME
	BuildTool      string `json:"build_tool"`                // Build tool binary (e.g., "mx")
	Java           string `json:"java"`                      // JVM launcher
	ShellClasspath string `json:"shell_classpath,omitempty"` // Classpath of the R shell
	TestClasspath  string `json:"test_classpath,omitempty"`  // Classpath of the unit tests
	BenchClasspath string `json:"bench_classpath,omitempty"` // Classpath of the benchmark helper
	TestProject    string `json:"test_project"`              // Project holding the unit tests
	GOOS           string `json:"goos,omitempty"`            // Override for library path selection
}

// TestConfig configures the unit test runner.
type TestConfig struct {
	RunnerClass          string   `json:"runner_class"`
	ListenerClass        string   `json:"listener_class"`
	Selector             string   `json:"selector"`              // Default test selector
	VMArgs               []string `json:"vm_args,omitempty"`     // Extra JVM arguments
	CompilationThreshold int      `json:"compilation_threshold"` // Truffle compilation threshold
	SrcDir               string   `json:"src_dir,omitempty"`     // Expected output directory (default derived from suite)
}

// AutogenConfig configures the registry drift guard.
type AutogenConfig struct {
	Files        []string `json:"files"`                  // Registry files relative to the test source dir
	RegenCommand string   `json:"regen_command"`          // Suggested in the out-of-sync message
	EvidenceDir  string   `json:"evidence_dir,omitempty"` // Keep stale copies here on mismatch
	Watch        bool     `json:"watch"`                  // Record file events during the gate
}

// BenchConfig configures benchmark dispatch.
type BenchConfig struct {
	Manifest               string   `json:"manifest,omitempty"`   // YAML suites file
	HelperClass            string   `json:"helper_class"`         // Resolves ids to script paths
	FastRArgs              []string `json:"fastr_args,omitempty"` // Arguments before "-f <script>"
	GnuRPath               string   `json:"gnur_path"`
	GnuRJIT                bool     `json:"gnur_jit"`
	LaunchFailureThreshold int      `json:"launch_failure_threshold"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Path     string `json:"path"`
	Disabled bool   `json:"disabled,omitempty"`
}

// PhaseOverride changes the policy of a named gate phase.
type PhaseOverride struct {
	Fatal *bool `json:"fatal,omitempty"` // nil keeps the built-in policy
	Skip  bool  `json:"skip,omitempty"`
}

// RGateConfig is the top-level configuration.
type RGateConfig struct {
	Suite   SuiteConfig              `json:"suite"`
	Tests   TestConfig               `json:"tests"`
	Autogen AutogenConfig            `json:"autogen"`
	Bench   BenchConfig              `json:"bench"`
	History HistoryConfig            `json:"history"`
	Phases  map[string]PhaseOverride `json:"phases,omitempty"`
}
