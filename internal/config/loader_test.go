package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	if content == "" {
		return ""
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		globalConfig  string
		projectConfig string
		check         func(t *testing.T, cfg *RGateConfig)
	}{
		{
			name: "No config files - returns defaults",
			check: func(t *testing.T, cfg *RGateConfig) {
				if cfg.Suite.BuildTool != "mx" {
					t.Errorf("build tool = %q, want mx", cfg.Suite.BuildTool)
				}
				if cfg.Tests.CompilationThreshold != 100000 {
					t.Errorf("compilation threshold = %d, want 100000", cfg.Tests.CompilationThreshold)
				}
				if len(cfg.Autogen.Files) != 2 {
					t.Errorf("autogen files = %v, want 2 entries", cfg.Autogen.Files)
				}
			},
		},
		{
			name:         "Global only - overrides one field, keeps siblings",
			globalConfig: `{"suite": {"dir": "/work/fastr"}}`,
			check: func(t *testing.T, cfg *RGateConfig) {
				if cfg.Suite.Dir != "/work/fastr" {
					t.Errorf("suite dir = %q, want /work/fastr", cfg.Suite.Dir)
				}
				if cfg.Suite.BuildTool != "mx" {
					t.Errorf("build tool = %q, want default mx", cfg.Suite.BuildTool)
				}
			},
		},
		{
			name:          "Project overrides global",
			globalConfig:  `{"bench": {"gnur_path": "/usr/bin/R", "gnur_jit": true}}`,
			projectConfig: `{"bench": {"gnur_path": "/opt/R/bin/R"}}`,
			check: func(t *testing.T, cfg *RGateConfig) {
				if cfg.Bench.GnuRPath != "/opt/R/bin/R" {
					t.Errorf("gnur path = %q, want /opt/R/bin/R", cfg.Bench.GnuRPath)
				}
				if !cfg.Bench.GnuRJIT {
					t.Error("expected gnur_jit from global config to survive")
				}
			},
		},
		{
			name:          "Phase overrides merge by name",
			globalConfig:  `{"phases": {"Copyright check": {"skip": true}}}`,
			projectConfig: `{"phases": {"Native build": {"fatal": false}}}`,
			check: func(t *testing.T, cfg *RGateConfig) {
				if len(cfg.Phases) != 2 {
					t.Fatalf("phases = %v, want 2 entries", cfg.Phases)
				}
				if !cfg.Phases["Copyright check"].Skip {
					t.Error("expected global skip override to survive")
				}
				fatal := cfg.Phases["Native build"].Fatal
				if fatal == nil || *fatal {
					t.Errorf("expected Native build fatal=false, got %v", fatal)
				}
			},
		},
		{
			name:         "Lists are replaced, not appended",
			globalConfig: `{"autogen": {"files": ["all/AllTests.java"]}}`,
			check: func(t *testing.T, cfg *RGateConfig) {
				if len(cfg.Autogen.Files) != 1 {
					t.Errorf("autogen files = %v, want 1 entry", cfg.Autogen.Files)
				}
				if cfg.Autogen.RegenCommand != "rgate testgen" {
					t.Errorf("regen command = %q, want default", cfg.Autogen.RegenCommand)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			globalPath := writeConfig(t, tmpDir, "global.json", tt.globalConfig)
			projectPath := writeConfig(t, tmpDir, "project.json", tt.projectConfig)

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	_, err := Load(globalPath, "")
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}

	if err.Error() == "" {
		t.Error("expected descriptive error message")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Suite.BuildTool = ""
	cfg.Tests.CompilationThreshold = 0
	cfg.Autogen.Files = []string{"../AllTests.java"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"suite.build_tool", "compilation_threshold", "../AllTests.java"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %v", want, err)
		}
	}
}
