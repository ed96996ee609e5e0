package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/signalnine/sweep/internal/aggregate"
	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/result"
	"github.com/signalnine/sweep/internal/workspace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sweepShape summarizes how jobs divide into seed groups.
type sweepShape struct {
	Jobs   int
	Seeds  int
	Groups int
	// Uneven lists groups whose size differs from the number of distinct seeds.
	Uneven []*workspace.Group
}

func shapeOf(jobs []*workspace.Job) sweepShape {
	groups := workspace.Groups(jobs)
	s := sweepShape{Jobs: len(jobs), Seeds: workspace.DistinctSeeds(jobs), Groups: len(groups)}
	for _, g := range groups {
		if len(g.Jobs) != s.Seeds {
			s.Uneven = append(s.Uneven, g)
		}
	}
	return s
}

// expectedLines is jobs/seeds + 1 for a full grid. For uneven sweeps that
// formula does not hold and one line per group plus the header is used.
func (s sweepShape) expectedLines() int {
	if s.Jobs == 0 {
		return 0
	}
	if len(s.Uneven) == 0 {
		return s.Jobs/s.Seeds + 1
	}
	return s.Groups + 1
}

// analyzedGroups counts the groups whose members all carry the analysis marker.
func analyzedGroups(jobs []*workspace.Job) int {
	n := 0
	for _, g := range workspace.Groups(jobs) {
		if g.AllHave(workspace.AnalysisMarker) {
			n++
		}
	}
	return n
}

type reportState int

const (
	reportComplete reportState = iota
	reportInProgress
	reportMismatch
)

// classifyReport compares a checked report against the sweep. A short report
// is still in progress when every analyzed group has its row.
func (s sweepShape) classifyReport(check *aggregate.ReportCheck, analyzed int) reportState {
	want := s.expectedLines()
	switch {
	case check.Lines == want:
		return reportComplete
	case check.Lines < want && check.Rows >= analyzed:
		return reportInProgress
	}
	return reportMismatch
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every result file and the seed-averaged report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			project, err := workspace.Open(cfg.ProjectDir)
			if err != nil {
				return err
			}
			jobs, err := project.Jobs()
			if err != nil {
				return err
			}

			var problems int
			for _, j := range jobs {
				if _, err := result.Read(j.ResultPath()); err != nil {
					if errors.Is(err, result.ErrMissing) {
						fmt.Printf("%s: no results yet\n", j.ID)
						continue
					}
					fmt.Printf("%s: %v\n", j.ID, err)
					problems++
				}
			}

			shape := shapeOf(jobs)
			for _, g := range shape.Uneven {
				fmt.Printf("uneven seed group (%d of %d seeds): %v\n", len(g.Jobs), shape.Seeds, g.Key)
			}

			check, err := aggregate.CheckReport(cfg.ReportPath(), aggregate.DefaultMetrics)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				fmt.Printf("report %s not written yet\n", cfg.ReportPath())
				if n := analyzedGroups(jobs); n > 0 {
					fmt.Printf("%d seed groups marked analyzed without a report\n", n)
					problems += n
				}
			case err != nil:
				fmt.Printf("report: %v\n", err)
				problems++
			default:
				want := shape.expectedLines()
				analyzed := analyzedGroups(jobs)
				logger.Debug("report checked",
					zap.Int("lines", check.Lines),
					zap.Int("want", want),
					zap.Int("analyzed_groups", analyzed),
					zap.Int("jobs", shape.Jobs),
					zap.Int("seeds", shape.Seeds),
				)
				switch shape.classifyReport(check, analyzed) {
				case reportComplete:
					fmt.Printf("report: %d seed groups OK\n", check.Rows)
				case reportInProgress:
					fmt.Printf("report: %d of %d seed groups analyzed, sweep in progress\n",
						check.Rows, shape.Groups)
				default:
					fmt.Printf("report: %d lines, want %d (%d jobs, %d distinct seeds, %d groups analyzed)\n",
						check.Lines, want, shape.Jobs, shape.Seeds, analyzed)
					problems++
				}
			}

			if problems > 0 {
				return fmt.Errorf("%d problems found", problems)
			}
			return nil
		},
	}
}
