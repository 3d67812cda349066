// Package config holds the resolved configuration for a ralph run.
//
// All file paths the orchestrator touches are computed here exactly once and
// carried in an explicit Config passed to every component. Nothing else in the
// codebase consults the working directory directly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all paths and loop tuning for a single orchestrator run.
type Config struct {
	// Dir is the project root. Every relative path below is resolved
	// against it during Load.
	Dir string

	RequirementsPath string // structured story document (prd.json)
	PromptPath       string // prompt template passed verbatim to the agent
	ProgressPath     string // append-only progress log
	BranchMarkerPath string // last-seen branch name
	ArchiveRoot      string // dated archives on branch change

	Tool  string // agent CLI selector (claude, codex, gemini)
	Model string // optional model identifier, empty = tool default

	MaxIterations  int
	IterationDelay time.Duration // pause between iterations
	AgentTimeout   time.Duration // per-invocation ceiling
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Dir:              dir,
		RequirementsPath: "prd.json",
		PromptPath:       "prompt.md",
		ProgressPath:     "progress.txt",
		BranchMarkerPath: filepath.Join(".ralph", "last-branch"),
		ArchiveRoot:      "archive",
		Tool:             "claude",
		MaxIterations:    10,
		IterationDelay:   2 * time.Second,
		AgentTimeout:     30 * time.Minute,
	}
}

// Load builds the configuration for dir, layering an optional YAML config
// file over the defaults. A missing config file is not an error; a malformed
// one is. cfgFile overrides the default location (.ralph/config.yaml).
func Load(dir, cfgFile string) (*Config, error) {
	cfg := Default(dir)

	path := cfgFile
	if path == "" {
		path = filepath.Join(dir, ".ralph", "config.yaml")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil || cfgFile != "" {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		// No config file - defaults apply
		cfg.resolve()
		return cfg, nil
	}

	if s := v.GetString("requirements"); s != "" {
		cfg.RequirementsPath = s
	}
	if s := v.GetString("prompt"); s != "" {
		cfg.PromptPath = s
	}
	if s := v.GetString("progress"); s != "" {
		cfg.ProgressPath = s
	}
	if s := v.GetString("branch_marker"); s != "" {
		cfg.BranchMarkerPath = s
	}
	if s := v.GetString("archive_root"); s != "" {
		cfg.ArchiveRoot = s
	}
	if s := v.GetString("tool"); s != "" {
		cfg.Tool = s
	}
	if s := v.GetString("model"); s != "" {
		cfg.Model = s
	}
	if n := v.GetInt("max_iterations"); n > 0 {
		cfg.MaxIterations = n
	}
	if d := v.GetDuration("iteration_delay"); d > 0 {
		cfg.IterationDelay = d
	}
	if d := v.GetDuration("agent_timeout"); d > 0 {
		cfg.AgentTimeout = d
	}

	cfg.resolve()
	return cfg, nil
}

// resolve anchors every relative path at Dir.
func (c *Config) resolve() {
	c.RequirementsPath = c.abs(c.RequirementsPath)
	c.PromptPath = c.abs(c.PromptPath)
	c.ProgressPath = c.abs(c.ProgressPath)
	c.BranchMarkerPath = c.abs(c.BranchMarkerPath)
	c.ArchiveRoot = c.abs(c.ArchiveRoot)
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Validate checks loop tuning values that would otherwise produce a run that
// can never terminate sensibly.
func (c *Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.IterationDelay < 0 {
		return fmt.Errorf("iteration delay cannot be negative: %v", c.IterationDelay)
	}
	return nil
}
