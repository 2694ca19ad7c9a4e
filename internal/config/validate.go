package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports configuration values that would make every run fail.
func (c *RGateConfig) Validate() error {
	var errs []error

	if c.Suite.Dir == "" {
		errs = append(errs, errors.New("suite.dir is required"))
	}
	if c.Suite.BuildTool == "" {
		errs = append(errs, errors.New("suite.build_tool is required"))
	}
	if c.Suite.Java == "" {
		errs = append(errs, errors.New("suite.java is required"))
	}
	if c.Tests.CompilationThreshold <= 0 {
		errs = append(errs, fmt.Errorf("tests.compilation_threshold must be positive, got %d", c.Tests.CompilationThreshold))
	}
	if c.Bench.LaunchFailureThreshold <= 0 {
		errs = append(errs, fmt.Errorf("bench.launch_failure_threshold must be positive, got %d", c.Bench.LaunchFailureThreshold))
	}
	if len(c.Autogen.Files) == 0 {
		errs = append(errs, errors.New("autogen.files must name at least one registry file"))
	}
	for _, f := range c.Autogen.Files {
		if strings.HasPrefix(f, "/") || strings.Contains(f, "..") {
			errs = append(errs, fmt.Errorf("autogen.files entry %q must be relative to the test source directory", f))
		}
	}

	return errors.Join(errs...)
}
