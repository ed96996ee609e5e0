package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/signalnine/sweep/internal/workflow"
	"github.com/spf13/cobra"
)

func newExecCmd() *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "exec --action <action> <job-id>...",
		Short: "Run one action on the named jobs",
		Long:  "Run one action on the named jobs, even when it has already completed for them. Seed analysis always covers the whole seed group of each named job.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := workflow.Lookup(action)
			if err != nil {
				return fmt.Errorf("%w (choose from %s)", err, strings.Join(workflow.Names(), ", "))
			}
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			b, err := s.wf.Select(a, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return s.wf.Execute(ctx, b, parallelism(flagParallel, s.cfg.Parallel))
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "action to run ("+strings.Join(workflow.Names(), ", ")+")")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent trainer runs (default from config)")
	cmd.MarkFlagRequired("action")
	return cmd
}
