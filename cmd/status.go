package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/sweep/internal/workflow"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var perJob bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how many jobs each action has completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			counts, err := s.wf.Status()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTION\tCOMPLETE\tREADY\tWAITING")
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", c.Action, c.Complete, c.Ready, c.Waiting)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !perJob {
				return nil
			}

			jobs, err := s.project.Jobs()
			if err != nil {
				return err
			}
			fmt.Println()
			tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "JOB\t%s\n", strings.ToUpper(strings.Join(workflow.Names(), "\t")))
			for _, j := range jobs {
				latest, err := s.ledger.Latest(j.ID)
				if err != nil {
					return err
				}
				cells := []string{j.ID}
				for _, a := range workflow.Actions {
					cell := workflow.Classify(a, j).String()
					if rec, ok := latest[a.Name]; ok {
						cell += " (" + string(rec.Status) + ")"
					}
					cells = append(cells, cell)
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&perJob, "jobs", false, "also show every job with its last recorded run")
	return cmd
}
