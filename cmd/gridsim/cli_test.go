package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func runIDFrom(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if id, ok := strings.CutPrefix(line, "run id: "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no run id in output:\n%s", out)
	return ""
}

func TestRunAndInspect(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "run", "neighbor_sum", "--preset", "example", "--data", dir)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "cycles: 3") {
		t.Errorf("expected 3 cycles:\n%s", out)
	}
	id := runIDFrom(t, out)

	out, err = runCLI(t, "list", "--data", dir)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, id) {
		t.Errorf("list missing %s:\n%s", id, out)
	}

	out, err = runCLI(t, "show", id, "--ascii", "--data", dir)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "step: 3") {
		t.Errorf("show should render the last snapshot:\n%s", out)
	}

	if _, err := runCLI(t, "show", id, "--index", "9", "--data", dir); err == nil {
		t.Error("expected error for snapshot index out of range")
	}

	out, err = runCLI(t, "plot", id, "--cell", "1,1", "--data", dir)
	if err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	if !strings.Contains(out, "energy vs time") || !strings.Contains(out, "cell [1 1][0] vs time") {
		t.Errorf("plot missing captions:\n%s", out)
	}

	out, err = runCLI(t, "analyze", id, "--data", dir)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out, "power spectrum (mean)") {
		t.Errorf("analyze missing spectrum:\n%s", out)
	}

	out, err = runCLI(t, "export-csv", id, "--data", dir)
	if err != nil {
		t.Fatalf("export-csv failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Errorf("expected header and 4 rows, got %d lines", len(lines))
	}

	path := filepath.Join(dir, "export.json")
	if _, err := runCLI(t, "export-json", id, "--output", path, "--data", dir); err != nil {
		t.Fatalf("export-json failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var exported struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
		Snapshots []json.RawMessage `json:"snapshots"`
	}
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if exported.Run.ID != id || len(exported.Snapshots) != 4 {
		t.Errorf("export: id %q, %d snapshots", exported.Run.ID, len(exported.Snapshots))
	}

	out, err = runCLI(t, "export-svg", id, "--cell-size", "2", "--data", dir)
	if err != nil {
		t.Fatalf("export-svg failed: %v", err)
	}
	if strings.Count(out, "<rect x=") != 9 {
		t.Errorf("expected one rect per cell of the 3x3 grid:\n%s", out)
	}

	out, err = runCLI(t, "export-svg", id, "--series", "peak", "--data", dir)
	if err != nil {
		t.Fatalf("export-svg --series failed: %v", err)
	}
	if !strings.Contains(out, "<path") {
		t.Errorf("expected a series path:\n%s", out)
	}
}

func TestRunFlagsOverride(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "run", "decay", "--steps", "2", "--shape", "4,4", "--param", "rate=0.5", "--data", dir)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "cycles: 2") {
		t.Errorf("--steps not applied:\n%s", out)
	}
	if !strings.Contains(out, "running decay on [4 4]") {
		t.Errorf("--shape not applied:\n%s", out)
	}

	if _, err := runCLI(t, "run", "decay", "--param", "rate=fast", "--data", dir); err == nil {
		t.Error("expected error for non-numeric parameter")
	}
	if _, err := runCLI(t, "run", "--preset", "pulse", "--data", dir); err == nil {
		t.Error("expected error for preset without rule")
	}
	if _, err := runCLI(t, "run", "diffusion", "--preset", "missing", "--data", dir); err == nil {
		t.Error("expected error for unknown preset")
	}
	if _, err := runCLI(t, "run", "diffusion", "--boundary", "open", "--data", dir); err == nil {
		t.Error("expected error for unknown boundary")
	}
}

func TestRunFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	yaml := "rule: decay\nshape: [3, 3]\ninitial: uniform\nsteps: 4\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "run", "--config", path, "--steps", "1", "--data", dir)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "running decay on [3 3]") || !strings.Contains(out, "cycles: 1") {
		t.Errorf("config file or override not applied:\n%s", out)
	}
}

func TestResume(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "run", "decay", "--steps", "3", "--shape", "3,3", "--data", dir, "--backend", "sqlite")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	id := runIDFrom(t, out)

	out, err = runCLI(t, "resume", id, "--steps", "2", "--data", dir, "--backend", "sqlite")
	if err != nil {
		t.Fatalf("resume failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "resuming "+id+" from step 3") || !strings.Contains(out, "cycles: 2") {
		t.Errorf("unexpected resume output:\n%s", out)
	}
	if runIDFrom(t, out) == id {
		t.Error("resume should store a new run")
	}

	if _, err := runCLI(t, "resume", "missing", "--data", dir, "--backend", "sqlite"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestResumeKeepsRunSettings(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "run", "decay", "--steps", "4", "--shape", "3,3",
		"--on-error", "retry", "--max-retries", "0", "--record-every", "2", "--data", dir)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	id := runIDFrom(t, out)

	out, err = runCLI(t, "resume", id, "--data", dir)
	if err != nil {
		t.Fatalf("resume failed: %v\n%s", err, out)
	}
	resumed := runIDFrom(t, out)

	out, err = runCLI(t, "export-json", resumed, "--data", dir)
	if err != nil {
		t.Fatalf("export-json failed: %v", err)
	}
	var exported struct {
		Run struct {
			OnError     string `json:"on_error"`
			MaxRetries  int    `json:"max_retries"`
			RecordEvery int    `json:"record_every"`
		} `json:"run"`
		Snapshots []json.RawMessage `json:"snapshots"`
	}
	if err := json.Unmarshal([]byte(out), &exported); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if exported.Run.OnError != "retry" || exported.Run.MaxRetries != 0 || exported.Run.RecordEvery != 2 {
		t.Errorf("resumed run lost settings: %+v", exported.Run)
	}
	// initial grid plus cycles 2 and 4
	if len(exported.Snapshots) != 3 {
		t.Errorf("expected 3 recorded snapshots, got %d", len(exported.Snapshots))
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "prune", "--data", dir, "--backend", "sqlite")
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if !strings.Contains(out, "pruned 0 runs") {
		t.Errorf("unexpected prune output:\n%s", out)
	}

	if _, err := runCLI(t, "prune", "--data", dir); err == nil {
		t.Error("expected error pruning the file backend")
	}
}

func TestBatchCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "sweep", "decay", "--name", "rate", "--min", "0.1", "--max", "0.3", "--points", "3", "--steps", "2", "--shape", "4,4", "--data", dir)
	if err != nil {
		t.Fatalf("sweep failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0.3000") {
		t.Errorf("sweep table missing last point:\n%s", out)
	}

	out, err = runCLI(t, "ensemble", "random_walk", "--members", "3", "--steps", "2", "--shape", "4,4", "--seed", "7", "--data", dir)
	if err != nil {
		t.Fatalf("ensemble failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "/3") {
		t.Errorf("ensemble summary missing:\n%s", out)
	}

	out, err = runCLI(t, "search", "decay", "--grid", "rate=0.1:0.9:3", "--shape", "4,4", "--initial", "uniform", "--steps", "3", "--data", dir)
	if err != nil {
		t.Fatalf("search failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "tried 3 combinations") || !strings.Contains(out, "rate = 0.9") {
		t.Errorf("unexpected search output:\n%s", out)
	}
	if _, err := runCLI(t, "search", "decay", "--grid", "rate=0.1:0.9", "--data", dir); err == nil {
		t.Error("expected error for malformed grid")
	}

	path := filepath.Join(dir, "scenario.yaml")
	scenario := `name: demo
steps:
  - name: first
    preset: decay/slow
    steps: 2
    save_as: demo_first
  - name: second
    rule: diffusion
    shape: [5, 5]
    steps: 1
`
	if err := os.WriteFile(path, []byte(scenario), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, "scenario", path, "--data", dir)
	if err != nil {
		t.Fatalf("scenario failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "run id: demo_first") {
		t.Errorf("save_as not used as run id:\n%s", out)
	}

	out, err = runCLI(t, "list", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "demo_first") {
		t.Errorf("scenario runs not stored:\n%s", out)
	}
}

func TestCatalogCommands(t *testing.T) {
	out, err := runCLI(t, "rules")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"diffusion rate=", "wave damping=", "neighbor_sum offset="} {
		if !strings.Contains(out, want) {
			t.Errorf("rules output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "presets", "wave")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "drop") || !strings.Contains(out, "string") {
		t.Errorf("presets output:\n%s", out)
	}
}
