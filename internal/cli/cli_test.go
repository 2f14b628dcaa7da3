package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/store"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Mode != model.ModeHybrid {
		t.Errorf("expected hybrid mode, got %s", cfg.Server.Mode)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected :8000, got %s", cfg.Server.Addr)
	}
	if cfg.Server.MessageDelay != 5*time.Second {
		t.Errorf("expected 5s message delay, got %s", cfg.Server.MessageDelay)
	}
	if cfg.Store.Backend != "layered" {
		t.Errorf("expected layered store, got %s", cfg.Store.Backend)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PAIRWISE_SERVER_MODE", "random")
	t.Setenv("PAIRWISE_STORE_BACKEND", "disk")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PAIRWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Mode != model.ModeRandom {
		t.Errorf("expected random mode from env, got %s", cfg.Server.Mode)
	}
	if cfg.Store.Backend != "disk" {
		t.Errorf("expected disk store from env, got %s", cfg.Store.Backend)
	}
}

func TestLoadConfig_UnknownMode(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("server.mode", "tournament")

	if _, err := loadConfig(v); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	if got := v.GetString("server.mode"); got != "hybrid" {
		t.Errorf("expected server.mode hybrid, got %q", got)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestShowConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := showConfig(&buf, model.DefaultConfig()); err != nil {
		t.Fatalf("showConfig: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Current Configuration", "mode: hybrid", "backend: layered", "PAIRWISE_"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	if got := buf.String(); got != "pairwise v"+version+"\n" {
		t.Errorf("unexpected version output %q", got)
	}
}

func seedRecords(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	evals := store.NewLedger[model.Evaluation](st)
	for i, sid := range []string{"7", "8"} {
		_, err := evals.Append(ctx, store.HybridKey("3"), model.Evaluation{
			EvaluationID:      "eval_3_" + sid,
			EvaluatorID:       "3",
			SampleIndex:       i,
			PaperID:           "paper-" + sid,
			AssignmentType:    model.AssignmentOverlap,
			EvaluatorSampleID: sid,
			Timestamp:         at.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append evaluation: %v", err)
		}
	}

	judgments := store.NewLedger[model.Judgment](st)
	for _, ev := range []string{"alice", "bob", "alice"} {
		_, err := judgments.Append(ctx, store.RandomKey, model.Judgment{
			EvaluationID: "j-" + ev + "-" + at.Format("150405"),
			EvaluatorID:  ev,
			PaperID:      "p1",
			CandidateA:   model.ReviewRef{ID: "a", Type: model.SourceOurs},
			CandidateB:   model.ReviewRef{ID: "b", Type: model.SourceHuman},
			Timestamp:    at,
		})
		if err != nil {
			t.Fatalf("append judgment: %v", err)
		}
		at = at.Add(time.Second)
	}
}

func TestListRecords(t *testing.T) {
	st := store.NewMemoryStore()
	seedRecords(t, st)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := listRecords(ctx, &buf, st, model.ModeHybrid, "3"); err != nil {
		t.Fatalf("listRecords: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "eval_3_7") || !strings.Contains(out, "eval_3_8") {
		t.Errorf("hybrid listing missing records:\n%s", out)
	}
	if !strings.Contains(out, "overlap") {
		t.Errorf("hybrid listing missing assignment type:\n%s", out)
	}

	buf.Reset()
	if err := listRecords(ctx, &buf, st, model.ModeRandom, "bob"); err != nil {
		t.Fatalf("listRecords: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one bob record, got %d lines:\n%s", len(lines), buf.String())
	}
	if strings.Contains(buf.String(), "alice") {
		t.Error("evaluator filter should exclude alice")
	}
}

func TestExportRecords(t *testing.T) {
	st := store.NewMemoryStore()
	seedRecords(t, st)
	ctx := context.Background()
	dir := t.TempDir()

	n, err := exportRecords(ctx, st, model.ModeHybrid, "3", dir)
	if err != nil {
		t.Fatalf("exportRecords: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 hybrid exports, got %d", n)
	}

	// 2025-03-01T12:00:00Z in milliseconds
	data, err := os.ReadFile(filepath.Join(dir, "eval_3_7_1740830400000.json"))
	if err != nil {
		t.Fatalf("expected hybrid export file: %v", err)
	}
	var exp struct {
		EvaluatorID string           `json:"evaluator_id"`
		Evaluation  model.Evaluation `json:"evaluation"`
	}
	if err := json.Unmarshal(data, &exp); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if exp.EvaluatorID != "3" || exp.Evaluation.PaperID != "paper-7" {
		t.Errorf("unexpected export content: %+v", exp)
	}

	n, err = exportRecords(ctx, st, model.ModeRandom, "alice", dir)
	if err != nil {
		t.Fatalf("exportRecords: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 random exports for alice, got %d", n)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "evaluation_alice_*.json"))
	if len(matches) != 2 {
		t.Errorf("expected 2 alice export files, got %v", matches)
	}
}
