package config

import (
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		DataDir:           ".quoll",
		ProposalThreshold: DefaultProposalThreshold,
		VoteThreshold:     DefaultVoteThreshold,
		ConsiderThreshold: true,
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
dataDir: "/var/lib/quoll"
proposalThreshold: "1/5"
voteThreshold: "1/500"
considerThreshold: false
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-quoll.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	expected := &Config{
		DataDir:           "/var/lib/quoll",
		ProposalThreshold: "1/5",
		VoteThreshold:     "1/500",
		ConsiderThreshold: false,
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
dataDir: "/var/lib/quoll"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-quoll.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.DataDir != "/var/lib/quoll" {
		t.Errorf("expected dataDir override, got: %q", cfg.DataDir)
	}
	if cfg.ProposalThreshold != DefaultProposalThreshold {
		t.Errorf(
			"expected default proposal threshold, got: %q",
			cfg.ProposalThreshold,
		)
	}
	if !cfg.ConsiderThreshold {
		t.Errorf("expected considerThreshold to default to true")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
proposalThreshold: "1/5"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-quoll.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("DUMMY_PROPOSAL_THRESHOLD", "1/4")

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.ProposalThreshold != "1/4" {
		t.Errorf(
			"expected env var to override file, got: %q",
			cfg.ProposalThreshold,
		)
	}
}

func TestLoad_InvalidThreshold(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
voteThreshold: "bogus"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-quoll.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadConfig(tmpFile); err == nil {
		t.Fatalf("expected error for invalid threshold")
	}
}

func TestThresholds(t *testing.T) {
	cfg := &Config{
		ProposalThreshold: "1/10",
		VoteThreshold:     "1/1000",
	}
	proposal, vote, err := cfg.Thresholds()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if proposal.Cmp(big.NewRat(1, 10)) != 0 {
		t.Errorf("unexpected proposal threshold: %s", proposal.String())
	}
	if vote.Cmp(big.NewRat(1, 1000)) != 0 {
		t.Errorf("unexpected vote threshold: %s", vote.String())
	}

	cfg.VoteThreshold = "-1/2"
	if _, _, err := cfg.Thresholds(); err == nil {
		t.Errorf("expected error for negative threshold")
	}
}
