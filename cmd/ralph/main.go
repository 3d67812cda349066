// Command ralph is an autonomous story-loop orchestrator: it repeatedly
// invokes an external AI coding agent against a fixed prompt until every
// story in prd.json passes, the agent signals completion, or the iteration
// budget runs out.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/ralph/internal/config"
)

var (
	rootDir string
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Autonomous story-loop orchestrator for AI coding agents",
	Long: `Ralph drives an external coding agent (Claude Code, Codex, or Gemini)
through the stories declared in prd.json, one iteration at a time.

Each iteration re-reads prd.json, invokes the agent with the contents of the
prompt file, and scans the output for the completion signal. Progress is
appended to progress.txt so the agent has cross-iteration memory. When the
tracked branch changes between runs, the previous run's artifacts are
archived automatically.`,
	SilenceUsage: true,
}

// loadConfig resolves the configuration for the selected directory. Fatal on
// failure: nothing can run without paths.
func loadConfig() *config.Config {
	dir := rootDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get current directory: %v\n", err)
			os.Exit(1)
		}
		dir = cwd
	}

	cfg, err := config.Load(dir, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "dir", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: <dir>/.ralph/config.yaml)")
}
