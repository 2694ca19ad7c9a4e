package config

// Built-in defaults shared with the settings form.
const (
	DefaultBuildTool    = "mx"
	DefaultJava         = "java"
	DefaultSelector     = "com.oracle.truffle.r.test.simple"
	DefaultRegenCommand = "rgate testgen"
	DefaultGnuRPath     = "R"
	DefaultHistoryPath  = ".rgate/history.db"
)

// DefaultConfig returns the default configuration for a FastR checkout in
// the current directory.
func DefaultConfig() *RGateConfig {
	return &RGateConfig{
		Suite: SuiteConfig{
			Dir:         ".",
			BuildTool:   DefaultBuildTool,
			Java:        DefaultJava,
			TestProject: "com.oracle.truffle.r.test",
		},
		Tests: TestConfig{
			RunnerClass:          "com.oracle.mxtool.junit.MxJUnitWrapper",
			ListenerClass:        "com.oracle.truffle.r.test.TestBase$RunListener",
			Selector:             DefaultSelector,
			CompilationThreshold: 100000,
		},
		Autogen: AutogenConfig{
			Files:        []string{"all/AllTests.java", "failing/FailingTests.java"},
			RegenCommand: DefaultRegenCommand,
		},
		Bench: BenchConfig{
			HelperClass:            "r.benchmarks.RBenchmarks",
			FastRArgs:              []string{"--DisableGroupGenerics"},
			GnuRPath:               DefaultGnuRPath,
			LaunchFailureThreshold: 3,
		},
		History: HistoryConfig{
			Path: DefaultHistoryPath,
		},
		Phases: map[string]PhaseOverride{},
	}
}
