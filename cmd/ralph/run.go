package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/ralph/internal/agent"
	"github.com/steveyegge/ralph/internal/archive"
	"github.com/steveyegge/ralph/internal/loop"
	"github.com/steveyegge/ralph/internal/progress"
	"github.com/steveyegge/ralph/internal/stories"
)

var (
	runMaxIterations int
	runTool          string
	runModel         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the iteration loop until completion or budget exhaustion",
	Long: `Run the orchestration loop.

Each iteration:
1. Re-reads prd.json; if every story passes, exits 0
2. Invokes the selected agent with the prompt file contents
3. Scans output for the completion signal; if found, exits 0
4. Pauses briefly and starts the next iteration

Exits 1 if the iteration budget is exhausted without completion.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if runMaxIterations > 0 {
			cfg.MaxIterations = runMaxIterations
		}
		if runTool != "" {
			cfg.Tool = runTool
		}
		if runModel != "" {
			cfg.Model = runModel
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		kind, err := agent.ParseKind(cfg.Tool)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		runID := uuid.New().String()
		log := progress.New(cfg.ProgressPath, runID)
		store := stories.NewStore(cfg.RequirementsPath)

		invoker := agent.NewInvoker(kind, cfg.Model, cfg.AgentTimeout, func(line string) {
			// Every agent output line hits the console and the log.
			fmt.Println(line)
			if err := log.AppendTool(string(kind), line); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to log agent output: %v\n", err)
			}
		})

		// Preflight: precondition failures abort before any iteration runs.
		if err := invoker.LookPath(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		promptBytes, err := os.ReadFile(cfg.PromptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read prompt file: %v\n", err)
			os.Exit(1)
		}
		doc, err := store.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s ralph run %s\n", green("✓"), gray(runID))
		fmt.Printf("  Tool:   %s\n", kind)
		if cfg.Model != "" {
			fmt.Printf("  Model:  %s\n", cfg.Model)
		}
		fmt.Printf("  Branch: %s\n", doc.BranchName)
		fmt.Printf("  Budget: %d iterations\n\n", cfg.MaxIterations)

		// Branch-change archival runs once, before the first iteration.
		// Best-effort: a failure is reported and otherwise ignored.
		archiver := archive.New(cfg.BranchMarkerPath, cfg.RequirementsPath, cfg.ArchiveRoot, log)
		if res := archiver.Run(doc.BranchName); res.Archived {
			fmt.Printf("%s Branch changed from %s, archived previous run to %s\n",
				gray("→"), res.PrevBranch, res.Dir)
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "warning: archive incomplete: %v\n", res.Err)
			}
		}

		if err := log.Append(fmt.Sprintf("run started (tool=%s, budget=%d)", kind, cfg.MaxIterations)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write progress log: %v\n", err)
		}

		// Ctrl+C cancels the in-flight wait and the inter-iteration pause.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := &loop.Runner{
			Store:         store,
			Log:           log,
			Invoker:       invoker,
			Prompt:        string(promptBytes),
			MaxIterations: cfg.MaxIterations,
			Delay:         cfg.IterationDelay,
		}

		outcome, err := runner.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(outcome.ExitCode())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Maximum iterations before giving up (default 10)")
	runCmd.Flags().StringVar(&runTool, "tool", "", "Agent CLI to invoke: claude, codex, or gemini (default claude)")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model identifier passed to the agent (default: tool default)")
}
