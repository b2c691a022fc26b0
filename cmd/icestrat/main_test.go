package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func newConfigCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cfgFile, preset, runName, seed, overrides, verbose = "", "", "", 0, nil, false
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestLoadConfig_Flags(t *testing.T) {
	cmd := newConfigCmd(t, "--preset", "no_bsed", "--set", "ejecta_threshold=-1", "--seed", "7", "--run-name", "x")

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BallisticSed {
		t.Error("preset not applied")
	}
	if cfg.EjectaThreshold != -1 {
		t.Errorf("override not applied, got %g", cfg.EjectaThreshold)
	}
	if cfg.Seed != 7 || cfg.RunName != "x" {
		t.Errorf("flags not applied: %d %s", cfg.Seed, cfg.RunName)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"--preset", "bogus"},
		{"--set", "bogus=1"},
		{"--set", "timestep=0"},
		{"--set", "novalue"},
	} {
		if _, err := loadConfig(newConfigCmd(t, args...)); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func newStoreCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cfgFile, dataDir = "", "runs"
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&dataDir, "out", "runs", "")
	addStoreFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestStoreDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("out_path: elsewhere\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dir, err := storeDir(newStoreCmd(t, "--cfg", path))
	if err != nil {
		t.Fatalf("store dir: %v", err)
	}
	if dir != "elsewhere" {
		t.Errorf("expected out_path from the config file, got %s", dir)
	}

	dir, err = storeDir(newStoreCmd(t, "--cfg", path, "--out", "flagged"))
	if err != nil {
		t.Fatalf("store dir: %v", err)
	}
	if dir != "flagged" {
		t.Errorf("expected --out to win, got %s", dir)
	}

	if _, err := storeDir(newStoreCmd(t, "--cfg", filepath.Join(t.TempDir(), "missing.yaml"))); err == nil {
		t.Error("expected error for missing config file")
	}
}
