package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// prdSkeleton seeds a new project with one sample story so the document
// shape is obvious.
const prdSkeleton = `{
  "branchName": "ralph/my-feature",
  "userStories": [
    {
      "id": "1",
      "title": "Describe the first unit of work here",
      "priority": 1,
      "passes": false
    }
  ]
}
`

const promptSkeleton = `Read prd.json and pick the highest-priority story where passes is false.
Implement it, run the tests, and set passes to true in prd.json when the
story is done. Append a summary of what you did to progress.txt.

When every story in prd.json has passes set to true, print <ALL_STORIES_COMPLETE>.
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold prd.json and the prompt file in the current directory",
	Long: `Create a starter prd.json and prompt.md so a new project can run immediately.

Existing files are never overwritten.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		created := 0
		for _, f := range []struct {
			path    string
			content string
		}{
			{cfg.RequirementsPath, prdSkeleton},
			{cfg.PromptPath, promptSkeleton},
		} {
			if _, err := os.Stat(f.path); err == nil {
				fmt.Printf("  %s %s already exists, leaving it alone\n", gray("○"), f.path)
				continue
			}
			if err := os.WriteFile(f.path, []byte(f.content), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", f.path, err)
				os.Exit(1)
			}
			fmt.Printf("  %s Created %s\n", green("✓"), f.path)
			created++
		}

		if created > 0 {
			fmt.Printf("\n%s Next steps:\n", gray("→"))
			fmt.Printf("  %s\n", gray("edit prd.json        # declare your stories"))
			fmt.Printf("  %s\n", gray("ralph run            # start the loop"))
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
