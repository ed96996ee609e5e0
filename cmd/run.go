package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/signalnine/sweep/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	flagAction   string
	flagParallel int
	flagDryRun   bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every eligible action",
		RunE:  runWorkflow,
	}
	cmd.Flags().StringVar(&flagAction, "action", "", "run only this action")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent trainer runs (default from config)")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would run without running it")
	return cmd
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if flagDryRun {
		return printPlan(s.wf, flagAction)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.wf.Run(ctx, flagAction, parallelism(flagParallel, s.cfg.Parallel))
}

// printPlan lists the jobs each action would run on now. Actions that depend
// on work not yet done show nothing until that work completes.
func printPlan(wf *workflow.Workflow, only string) error {
	actions := workflow.Actions
	if only != "" {
		a, err := workflow.Lookup(only)
		if err != nil {
			return err
		}
		actions = []*workflow.Action{a}
	}
	for _, a := range actions {
		b, err := wf.Plan(a)
		if err != nil {
			return err
		}
		if a.Scope == workflow.PerGroup {
			fmt.Printf("%s: %d seed groups (%d jobs)\n", a.Name, len(b.Groups), len(b.Jobs))
			for _, g := range b.Groups {
				fmt.Printf("  - %v\n", g.Key)
			}
			continue
		}
		fmt.Printf("%s: %d jobs\n", a.Name, len(b.Jobs))
		for _, j := range b.Jobs {
			fmt.Printf("  - %s %v\n", j.ID, j.Statepoint())
		}
	}
	return nil
}

// parallelism prefers the flag, then the config, and never goes below one.
func parallelism(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	if configured > 0 {
		return configured
	}
	return 1
}
