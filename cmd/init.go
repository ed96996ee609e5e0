package cmd

import (
	"fmt"

	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/workspace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a job for every statepoint in the grid",
		Long:  "Expand the configured parameter grid into jobs and remove any prior seed analysis, which has to be recomputed once the set of jobs changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			project, err := workspace.Open(cfg.ProjectDir)
			if err != nil {
				return err
			}
			points := cfg.Statepoints.Expand()
			for _, sp := range points {
				job, err := project.InitJob(sp)
				if err != nil {
					return err
				}
				logger.Debug("initialized job", zap.String("job", job.ID), zap.Stringer("statepoint", sp))
			}
			if err := project.ResetAnalysis(cfg.AnalysisPath()); err != nil {
				return err
			}
			jobs, err := project.Jobs()
			if err != nil {
				return err
			}
			fmt.Printf("Initialized %d statepoints in %s (%d jobs, %d seed groups)\n",
				len(points), project.WorkspaceDir(), len(jobs), len(workspace.Groups(jobs)))
			return nil
		},
	}
}
