package cliapp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeTempInput(t *testing.T, doc string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const minimalDoc = `{
  "attributes": [],
  "contexts": [],
  "configuration": {"selectedFeatures": ["feature[a]"]},
  "constraints": [],
  "preferences": [],
  "context_constraints": []
}`

func TestRun_ReconfigureMinimalDoc(t *testing.T) {
	input := writeTempInput(t, minimalDoc)
	outPath := filepath.Join(t.TempDir(), "out.json")

	cfg := RunConfig{InputFile: input, OutputFile: outPath, NumProcess: 1}
	if err := Run(cfg, zap.NewNop()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v (raw=%s)", err, raw)
	}
	if got["result"] != "sat" {
		t.Fatalf("expected sat result, got %v", got)
	}
}

func TestRun_ValidateMinimalDoc(t *testing.T) {
	input := writeTempInput(t, minimalDoc)
	outPath := filepath.Join(t.TempDir(), "out.json")

	cfg := RunConfig{InputFile: input, OutputFile: outPath, NumProcess: 1, Validate: true}
	if err := Run(cfg, zap.NewNop()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["result"] != "valid" {
		t.Fatalf("expected valid result, got %v", got)
	}
}

func TestRun_RejectsConflictingModes(t *testing.T) {
	input := writeTempInput(t, minimalDoc)
	cfg := RunConfig{InputFile: input, NumProcess: 1, Validate: true, Explain: true}
	err := Run(cfg, zap.NewNop())
	if err == nil {
		t.Fatal("expected a mode-conflict error")
	}
}

func TestRun_ConstraintForcesFeatureSelected(t *testing.T) {
	doc := `{
	  "attributes": [],
	  "contexts": [],
	  "configuration": {"selectedFeatures": []},
	  "constraints": ["feature[a] = 1"],
	  "preferences": [],
	  "context_constraints": []
	}`
	input := writeTempInput(t, doc)
	outPath := filepath.Join(t.TempDir(), "out.json")

	cfg := RunConfig{InputFile: input, OutputFile: outPath, NumProcess: 1}
	if err := Run(cfg, zap.NewNop()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, _ := os.ReadFile(outPath)
	var got struct {
		Result   string   `json:"result"`
		Features []string `json:"features"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Result != "sat" {
		t.Fatalf("expected sat, got %q", got.Result)
	}
	found := false
	for _, f := range got.Features {
		if f == "a" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected feature a selected, got %v", got.Features)
	}
}
