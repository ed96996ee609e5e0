package cmd

import (
	"fmt"

	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/workspace"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs by seed group",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			project, err := workspace.Open(cfg.ProjectDir)
			if err != nil {
				return err
			}
			jobs, err := project.Jobs()
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Printf("No jobs in %s (grid has %d statepoints; run `sweep init`)\n",
					project.WorkspaceDir(), cfg.Statepoints.Size())
				return nil
			}
			for _, g := range workspace.Groups(jobs) {
				fmt.Printf("%v\n", g.Key)
				for _, j := range g.Jobs {
					fmt.Printf("  - seed %d: %s\n", j.Statepoint().Seed, j.ID)
				}
			}
			return nil
		},
	}
}
