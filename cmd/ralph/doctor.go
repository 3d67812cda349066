package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/ralph/internal/agent"
	"github.com/steveyegge/ralph/internal/stories"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment for anything that would stop a run",
	Long: `Run health checks against the project directory.

This command checks for:
- Supported agent CLIs on PATH
- prd.json existence and parseability
- Prompt file existence
- Progress log writability

Exit codes:
  0 - All checks passed
  1 - One or more checks failed`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running ralph health checks...\n\n")

		var failures []string

		fmt.Printf("%s Agent CLIs\n", cyan("→"))
		found := 0
		for _, kind := range agent.Kinds() {
			if path, err := exec.LookPath(string(kind)); err == nil {
				fmt.Printf("  %s %s (%s)\n", green("✓"), kind, path)
				found++
			} else {
				fmt.Printf("  %s %s not on PATH\n", yellow("⚠"), kind)
			}
		}
		if found == 0 {
			failures = append(failures, "no supported agent CLI found on PATH")
			fmt.Printf("  %s No supported agent CLI available\n", red("✗"))
		}

		fmt.Printf("%s Requirements document\n", cyan("→"))
		store := stories.NewStore(cfg.RequirementsPath)
		if doc, err := store.Load(); err != nil {
			failures = append(failures, fmt.Sprintf("requirements document: %v", err))
			fmt.Printf("  %s %v\n", red("✗"), err)
		} else {
			fmt.Printf("  %s %s (%d stories, %d remaining)\n",
				green("✓"), cfg.RequirementsPath, len(doc.UserStories), stories.Remaining(doc))
		}

		fmt.Printf("%s Prompt file\n", cyan("→"))
		if info, err := os.Stat(cfg.PromptPath); err != nil {
			failures = append(failures, fmt.Sprintf("prompt file: %v", err))
			fmt.Printf("  %s %s missing\n", red("✗"), cfg.PromptPath)
		} else if info.Size() == 0 {
			fmt.Printf("  %s %s is empty\n", yellow("⚠"), cfg.PromptPath)
		} else {
			fmt.Printf("  %s %s (%d bytes)\n", green("✓"), cfg.PromptPath, info.Size())
		}

		fmt.Printf("%s Progress log\n", cyan("→"))
		if f, err := os.OpenFile(cfg.ProgressPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err != nil {
			failures = append(failures, fmt.Sprintf("progress log not writable: %v", err))
			fmt.Printf("  %s %s not writable\n", red("✗"), cfg.ProgressPath)
		} else {
			_ = f.Close()
			fmt.Printf("  %s %s writable\n", green("✓"), cfg.ProgressPath)
		}

		fmt.Println()
		if len(failures) > 0 {
			fmt.Printf("%s %d check(s) failed\n", red("✗"), len(failures))
			os.Exit(1)
		}
		fmt.Printf("%s All checks passed\n", green("✓"))
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
