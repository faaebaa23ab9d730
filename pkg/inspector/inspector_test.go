package inspector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samogod/trainconf/pkg/runconfig"
)

func newTestInspector(t *testing.T) *Inspector {
	t.Helper()
	insp, err := NewInspector(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("NewInspector failed: %v", err)
	}
	return insp
}

func writeRun(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestInspectDefaultRun(t *testing.T) {
	insp := newTestInspector(t)
	path := writeRun(t, runconfig.DefaultTemplate())

	report, err := insp.Inspect(InspectOptions{File: path, SkipRecord: true})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if !report.Valid {
		t.Errorf("default run reported invalid: %v", report.Findings)
	}
	if report.Summary.WorldSize != 32 {
		t.Errorf("world size = %d, want 32", report.Summary.WorldSize)
	}
	if len(report.References) == 0 {
		t.Errorf("expected interpolation references in the report")
	}
	if len(report.Resolvers) != 1 || report.Resolvers[0] != "multiply" {
		t.Errorf("resolvers = %v, want [multiply]", report.Resolvers)
	}
}

func TestInspectInvalidRun(t *testing.T) {
	insp := newTestInspector(t)

	broken := strings.Replace(string(runconfig.DefaultTemplate()),
		"splits_string: 900,50,50", "splits_string: 900,50,49", 1)
	path := writeRun(t, []byte(broken))

	report, err := insp.Inspect(InspectOptions{File: path, SkipRecord: true})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if report.Valid {
		t.Errorf("expected the run to be invalid")
	}
	if len(runconfig.Errors(report.Findings)) == 0 {
		t.Errorf("expected error findings, got %v", report.Findings)
	}
}

func TestInspectStrictTreatsWarningsAsFailures(t *testing.T) {
	insp := newTestInspector(t)

	profiled := strings.Replace(string(runconfig.DefaultTemplate()),
		"enabled: false", "enabled: true", 1)
	path := writeRun(t, []byte(profiled))

	report, err := insp.Inspect(InspectOptions{File: path, SkipRecord: true})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !report.Valid {
		t.Errorf("warnings alone should not fail the default mode: %v", report.Findings)
	}

	strictReport, err := insp.Inspect(InspectOptions{File: path, Strict: true, SkipRecord: true})
	if err != nil {
		t.Fatalf("strict Inspect failed: %v", err)
	}
	if strictReport.Valid {
		t.Errorf("strict mode should fail on warnings: %v", strictReport.Findings)
	}
}

func TestInspectStrictFailsOnTokenizerWarning(t *testing.T) {
	insp := newTestInspector(t)

	missing := filepath.Join(t.TempDir(), "missing.model")
	run := string(runconfig.DefaultTemplate())
	run = strings.Replace(run, "library: huggingface", "library: sentencepiece", 1)
	run = strings.Replace(run, "type: NousResearch/Llama-2-7b-hf", "type: null", 1)
	run = strings.Replace(run, "model: null", "model: "+missing, 1)
	path := writeRun(t, []byte(run))

	report, err := insp.Inspect(InspectOptions{File: path, CheckTokenizer: true, SkipRecord: true})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !report.Valid {
		t.Errorf("a tokenizer warning alone should not fail the default mode: %v", report.Findings)
	}

	found := false
	for _, f := range report.Findings {
		if f.Warning && f.Path == "model.tokenizer" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a tokenizer warning, got %v", report.Findings)
	}

	strictReport, err := insp.Inspect(InspectOptions{File: path, Strict: true, CheckTokenizer: true, SkipRecord: true})
	if err != nil {
		t.Fatalf("strict Inspect failed: %v", err)
	}
	if strictReport.Valid {
		t.Errorf("strict mode must fail on the tokenizer warning: %v", strictReport.Findings)
	}
}

func TestInspectMissingFile(t *testing.T) {
	insp := newTestInspector(t)

	if _, err := insp.Inspect(InspectOptions{File: filepath.Join(t.TempDir(), "absent.yaml"), SkipRecord: true}); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestInspectCollectsPhaseStats(t *testing.T) {
	insp := newTestInspector(t)
	path := writeRun(t, runconfig.DefaultTemplate())

	report, err := insp.Inspect(InspectOptions{File: path, SkipRecord: true, CollectStats: true})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	want := []string{"parse", "resolve", "validate"}
	if len(report.PhaseStats) != len(want) {
		t.Fatalf("phase stats = %v, want %v", report.PhaseStats, want)
	}
	for i, name := range want {
		if report.PhaseStats[i].Name != name {
			t.Errorf("phase %d = %q, want %q", i, report.PhaseStats[i].Name, name)
		}
	}
}

func TestRenderResolvesPlaceholders(t *testing.T) {
	insp := newTestInspector(t)
	path := writeRun(t, runconfig.DefaultTemplate())

	out, err := insp.Render(path)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	rendered := string(out)
	if strings.Contains(rendered, "${multiply:") {
		t.Errorf("render left placeholders unresolved:\n%s", rendered)
	}
	if !strings.Contains(rendered, "model_parallel_size: 4") {
		t.Errorf("render did not materialize the derived value:\n%s", rendered)
	}
}
