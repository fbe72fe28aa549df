package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c2h5oh/datasize"

	"github.com/nvandessel/silicon/internal/config"
	"github.com/nvandessel/silicon/internal/engine"
	"github.com/nvandessel/silicon/internal/export"
)

// isolateHome points HOME at a temp directory so nothing touches the real
// ~/.silicon/. MUST be called by any test that opens stores or writes config.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", home)
	return home
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmdSubcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"version", "run", "graph", "export", "config", "mcp-server"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"json", "config", "log-level"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}

	out, _, _ = execute(t, "version")
	if !strings.HasPrefix(out, "silicon "+version+" ") {
		t.Errorf("plain output = %q", out)
	}
}

func TestRunRecordsAndExports(t *testing.T) {
	home := isolateHome(t)
	db := filepath.Join(home, "runs.db")

	out, _, err := execute(t, "run", "--ticks", "50", "--db", db, "--record-weights-every", "10", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var result struct {
		Summary engine.RunSummary `json:"summary"`
		RunID   string            `json:"run_id"`
		DB      string            `json:"db"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if result.Summary.Ticks != 50 {
		t.Errorf("ticks = %d, want 50", result.Summary.Ticks)
	}
	if result.RunID == "" {
		t.Fatal("run was not recorded")
	}
	if result.DB != db {
		t.Errorf("db = %q, want %q", result.DB, db)
	}

	arrowPath := filepath.Join(home, "spikes.arrow")
	if _, _, err := execute(t, "export", "--latest", "--db", db, "--out", arrowPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := os.Open(arrowPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	runID, _, err := export.ReadSpikes(f)
	if err != nil {
		t.Fatalf("ReadSpikes: %v", err)
	}
	if runID != result.RunID {
		t.Errorf("exported run_id = %q, want %q", runID, result.RunID)
	}

	out, _, err = execute(t, "export", "--list", "--db", db)
	if err != nil {
		t.Fatalf("export --list: %v", err)
	}
	if !strings.Contains(out, result.RunID) {
		t.Errorf("run list %q does not contain %s", out, result.RunID)
	}
}

func TestRunPlainSummary(t *testing.T) {
	isolateHome(t)

	out, _, err := execute(t, "run", "--ticks", "20")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Ran 20 ticks") {
		t.Errorf("summary = %q, want it to report 20 ticks", out)
	}
	if strings.Contains(out, "Recorded run") {
		t.Errorf("run without a store reported a recording: %q", out)
	}
}

func TestExportRequiresOneRunSelector(t *testing.T) {
	isolateHome(t)

	tests := []struct {
		name string
		args []string
	}{
		{"neither", []string{"export"}},
		{"both", []string{"export", "--run", "abc", "--latest"}},
		{"bad table", []string{"export", "--latest", "--table", "neurons"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, tt.args...); err == nil {
				t.Errorf("%v: expected error", tt.args)
			}
		})
	}
}

func TestGraphCmd(t *testing.T) {
	isolateHome(t)

	out, _, err := execute(t, "graph")
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if !strings.HasPrefix(out, "digraph silicon {") {
		t.Errorf("default format is not DOT: %q", out[:min(len(out), 40)])
	}

	out, _, err = execute(t, "graph", "--format", "json")
	if err != nil {
		t.Fatalf("graph --format json: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode JSON graph: %v", err)
	}

	if _, _, err := execute(t, "graph", "--format", "html"); err == nil {
		t.Error("graph --format html: expected error")
	}
}

func TestConfigSetGet(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "custom.yaml")

	if _, _, err := execute(t, "--config", path, "config", "set", "simulation.tau", "0.005"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Simulation.Tau != 0.005 {
		t.Errorf("saved tau = %v, want 0.005", cfg.Simulation.Tau)
	}

	if _, _, err := execute(t, "--config", path, "config", "set", "checkpoint.max_size", "8MB"); err != nil {
		t.Fatalf("config set checkpoint.max_size: %v", err)
	}
	if cfg, err = config.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Checkpoint.MaxSize != 8*datasize.MB {
		t.Errorf("saved checkpoint.max_size = %v, want 8MB", cfg.Checkpoint.MaxSize)
	}

	out, _, err := execute(t, "--config", path, "config", "get", "simulation.tau")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(out) != "simulation.tau = 0.005" {
		t.Errorf("config get = %q", out)
	}

	out, _, err = execute(t, "--config", path, "config", "list")
	if err != nil {
		t.Fatalf("config list: %v", err)
	}
	if !strings.Contains(out, "store.kind:") || !strings.Contains(out, "(not set)") {
		t.Errorf("config list output missing store.kind placeholder:\n%s", out)
	}
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "config.yaml")

	tests := []struct {
		key, value string
	}{
		{"simulation.tau", "0"},
		{"simulation.tau", "fast"},
		{"simulation.workers", "-1"},
		{"plasticity.mode", "hebbian"},
		{"store.kind", "postgres"},
		{"checkpoint.max_size", "huge"},
		{"no.such.key", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			if _, _, err := execute(t, "--config", path, "config", "set", tt.key, tt.value); err == nil {
				t.Errorf("config set %s %s: expected error", tt.key, tt.value)
			}
		})
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("invalid settings were saved (stat err = %v)", err)
	}
}

func TestGetConfigValueCoversKeys(t *testing.T) {
	cfg := config.Default()
	for _, key := range configKeys {
		if _, ok := getConfigValue(cfg, key); !ok {
			t.Errorf("getConfigValue(%q) not found", key)
		}
	}
}

func TestRunSaveAndLoadWeights(t *testing.T) {
	home := isolateHome(t)
	ckpt := filepath.Join(home, "trained.ckpt")

	if _, _, err := execute(t, "run", "--ticks", "30", "--save-weights", ckpt); err != nil {
		t.Fatalf("run --save-weights: %v", err)
	}
	if _, err := os.Stat(ckpt); err != nil {
		t.Fatalf("checkpoint not written: %v", err)
	}
	if _, _, err := execute(t, "run", "--ticks", "30", "--load-weights", ckpt); err != nil {
		t.Fatalf("run --load-weights: %v", err)
	}

	// A different seed builds a different network the checkpoint cannot fit.
	t.Setenv("SILICON_SEED", "99")
	if _, _, err := execute(t, "run", "--ticks", "1", "--load-weights", ckpt); err == nil {
		t.Error("loading a checkpoint into a differently seeded network should fail")
	}
}
