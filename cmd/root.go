package cmd

import (
	"fmt"

	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/ledger"
	"github.com/signalnine/sweep/internal/trainer"
	"github.com/signalnine/sweep/internal/workflow"
	"github.com/signalnine/sweep/internal/workspace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sweep",
		Short:        "Run hyperparameter sweeps and aggregate results across seeds",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "sweep.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(newInitCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// session is the state shared by commands that touch the workspace.
type session struct {
	cfg     *config.Config
	project *workspace.Project
	ledger  *ledger.Ledger
	wf      *workflow.Workflow
}

func openSession() (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	project, err := workspace.Open(cfg.ProjectDir)
	if err != nil {
		return nil, err
	}
	exec, err := trainer.New(cfg.Trainer)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:     cfg,
		project: project,
		ledger:  l,
		wf:      workflow.New(cfg, project, exec, l, logger),
	}, nil
}

func (s *session) Close() {
	if err := s.ledger.Close(); err != nil {
		logger.Warn("closing ledger", zap.Error(err))
	}
}
