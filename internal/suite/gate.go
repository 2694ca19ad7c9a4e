package suite

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/aristath/rgate/internal/autogen"
	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/directive"
	"github.com/aristath/rgate/internal/gate"
	"github.com/aristath/rgate/internal/junit"
)

// Gate phase names.
const (
	PhaseCopyright       = "Copyright check"
	PhaseAutogenSnapshot = "Autogen snapshot"
	PhaseBuild           = "Project build"
	PhaseAutogenVerify   = "Autogen verify"
	PhaseNativeBuild     = "Native build: server product"
	PhaseExpectedOutput  = "UnitTests: ExpectedTestOutput file check"
	PhaseUnitTests       = "UnitTests: simple"
)

// GatePlan is the phase list of one gate run. It owns the registry snapshot
// taken by the snapshot phase; Close releases it if the gate ended before
// the verify phase ran.
type GatePlan struct {
	Phases []gate.Phase
	snap   *autogen.Snapshot
}

// Close discards a snapshot left behind by an aborted gate.
func (p *GatePlan) Close() error {
	if p.snap == nil {
		return nil
	}
	return p.snap.Discard()
}

// Gate returns the gate phases in order, with configured overrides applied.
func (s *Suite) Gate() *GatePlan {
	plan := &GatePlan{}

	phases := []gate.Phase{
		{Name: PhaseCopyright, Fatal: true, Run: s.CheckCopyrights},
		{Name: PhaseAutogenSnapshot, Fatal: true, Run: func(ctx context.Context, out io.Writer) error {
			snap, err := autogen.Take(s.TestSrcDir(), s.autogenOptions())
			if err != nil {
				return err
			}
			plan.snap = snap
			fmt.Fprintf(out, "saved %d registry files to %s\n", len(snap.Files()), snap.Dir())
			return nil
		}},
		{Name: PhaseBuild, Fatal: true, Run: s.Build},
		{Name: PhaseAutogenVerify, Fatal: true, Run: func(ctx context.Context, out io.Writer) error {
			if plan.snap == nil {
				log.Printf("WARNING: no registry snapshot was taken, skipping verification")
				return nil
			}
			snap := plan.snap
			plan.snap = nil
			for _, c := range snap.Changes() {
				fmt.Fprintf(out, "registry change observed: %s\n", c)
			}
			return snap.Verify()
		}},
		{Name: PhaseNativeBuild, Fatal: true, Run: s.BuildNative},
		{Name: PhaseExpectedOutput, Fatal: true, Run: s.unitTests(directive.Options{CheckExpected: true})},
		{Name: PhaseUnitTests, Fatal: true, Run: s.unitTests(directive.Options{})},
	}

	for _, p := range phases {
		override, ok := s.cfg.Phases[p.Name]
		if ok && override.Skip {
			continue
		}
		if ok && override.Fatal != nil {
			p.Fatal = *override.Fatal
		}
		plan.Phases = append(plan.Phases, p)
	}
	return plan
}

func (s *Suite) autogenOptions() autogen.Options {
	return autogen.Options{
		Files:        s.cfg.Autogen.Files,
		RegenCommand: s.cfg.Autogen.RegenCommand,
		EvidenceDir:  s.cfg.Autogen.EvidenceDir,
		Watch:        s.cfg.Autogen.Watch,
	}
}

// unitTests returns a phase action running the default tests with output.
func (s *Suite) unitTests(output directive.Options) func(ctx context.Context, out io.Writer) error {
	return func(ctx context.Context, out io.Writer) error {
		code, err := s.JUnit(ctx, junit.Request{Tests: s.DefaultTests(), Output: output}, out)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("unit tests failed: %w", &backend.ProcessFailure{Name: "unit tests", ExitCode: code})
		}
		return nil
	}
}
