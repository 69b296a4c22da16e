// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "quoll.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// Default voting thresholds, expressed as fractions of the epoch's total
// stake
const (
	DefaultProposalThreshold = "1/10"
	DefaultVoteThreshold     = "1/1000"
)

type Config struct {
	DataDir           string `yaml:"dataDir"           split_words:"true"`
	ProposalThreshold string `yaml:"proposalThreshold" split_words:"true"`
	VoteThreshold     string `yaml:"voteThreshold"     split_words:"true"`
	ConsiderThreshold bool   `yaml:"considerThreshold" split_words:"true"`
}

var globalConfig = &Config{
	DataDir:           ".quoll",
	ProposalThreshold: DefaultProposalThreshold,
	VoteThreshold:     DefaultVoteThreshold,
	ConsiderThreshold: true,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.quoll/quoll.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".quoll", "quoll.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/quoll/quoll.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/quoll/quoll.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Load config values from environment variables
	// We use "dummy" as the app name to (mostly) prevent picking up env
	// vars that we hadn't explicitly specified in annotations above
	err := envconfig.Process("dummy", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Validate thresholds up front
	if _, _, err := globalConfig.Thresholds(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

// GetConfig returns the global config instance
func GetConfig() *Config {
	return globalConfig
}

// Thresholds parses the configured threshold fractions.
func (c *Config) Thresholds() (*big.Rat, *big.Rat, error) {
	proposal, ok := new(big.Rat).SetString(c.ProposalThreshold)
	if !ok || proposal.Sign() < 0 {
		return nil, nil, fmt.Errorf(
			"invalid proposal threshold: %q",
			c.ProposalThreshold,
		)
	}
	vote, ok := new(big.Rat).SetString(c.VoteThreshold)
	if !ok || vote.Sign() < 0 {
		return nil, nil, fmt.Errorf(
			"invalid vote threshold: %q",
			c.VoteThreshold,
		)
	}
	return proposal, vote, nil
}
