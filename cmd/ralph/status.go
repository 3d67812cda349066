package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/ralph/internal/stories"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show story completion status",
	Long:  `Display the branch, each story's pass state, and the remaining count from prd.json.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		store := stories.NewStore(cfg.RequirementsPath)
		doc, err := store.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Ralph Status ==="))
		fmt.Printf("  Branch:  %s\n", doc.BranchName)
		fmt.Printf("  Stories: %d total\n\n", len(doc.UserStories))

		for _, s := range doc.UserStories {
			if s.Passes {
				fmt.Printf("  %s %s - %s\n", green("✓"), s.ID, s.Title)
			} else {
				fmt.Printf("  %s %s - %s %s\n", gray("○"), s.ID, s.Title,
					gray(fmt.Sprintf("(priority %d)", s.EffectivePriority())))
			}
		}

		remaining := stories.Remaining(doc)
		fmt.Println()
		if remaining == 0 {
			fmt.Printf("  %s All stories complete\n\n", green("✓"))
			return
		}
		next := stories.Current(doc)
		fmt.Printf("  Remaining: %d\n", remaining)
		fmt.Printf("  Next up:   %s - %s\n\n", next.ID, next.Title)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
