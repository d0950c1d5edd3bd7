package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/obentoo/portcheck/internal/common/config"
	"github.com/obentoo/portcheck/internal/common/logger"
	"github.com/obentoo/portcheck/internal/common/output"
	"github.com/obentoo/portcheck/internal/maintain"
)

var (
	maintainDryRun    bool
	maintainWithAudit bool
	maintainStepsFile string
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run the routine maintenance pipeline",
	Long: `Run the maintenance pipeline: sync the tree, update world, clean
dependencies, and rebuild reverse dependencies, each as an external
command. The step list can be customized in a TOML file
(~/.config/portcheck/maintain.toml, [[step]] tables).

After the external steps the override audit runs, so freshly stabilized
or removed packages surface immediately. Disable with --with-audit=false.

Examples:
  portcheck maintain              # Full pipeline plus audit
  portcheck maintain --dry-run    # Show the steps without running them
  portcheck maintain --steps-file ./custom.toml`,
	Args: cobra.NoArgs,
	Run:  runMaintain,
}

func init() {
	maintainCmd.Flags().BoolVar(&maintainDryRun, "dry-run", false, "List the steps without executing them")
	maintainCmd.Flags().BoolVar(&maintainWithAudit, "with-audit", true, "Run the override audit after the pipeline")
	maintainCmd.Flags().StringVar(&maintainStepsFile, "steps-file", "", "Pipeline definition file (TOML)")
	rootCmd.AddCommand(maintainCmd)
}

func runMaintain(cmd *cobra.Command, args []string) {
	pipe, err := loadPipeline()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	if maintainDryRun {
		output.PrintInfo("Pipeline steps:")
		for i, step := range pipe.Steps {
			output.Printf(output.Header, "  %d. %s\n", i+1, step.Name)
			output.Printf(output.Dim, "     %s\n", step.String())
		}
		return
	}

	// Maintenance runs are long and often unattended; keep a persistent
	// record of what ran under the state directory.
	if err := logger.Default().EnableFileLogging(); err == nil {
		defer logger.Default().Close()
	}
	logger.Debug("maintenance pipeline: %d steps", len(pipe.Steps))

	runner := maintain.NewExecRunner(quiet)
	failed := 0
	for _, step := range pipe.Steps {
		output.PrintInfo("Running %s: %s", step.Name, step.String())
		logger.Debug("step %s: %s", step.Name, step.String())
		if err := runner.Run(step); err != nil {
			logger.Debug("step %s failed: %v", step.Name, err)
			if !step.ContinueOnError {
				output.PrintError("Step %s failed: %v", step.Name, err)
				os.Exit(1)
			}
			failed++
			output.PrintWarning("Step %s failed, continuing: %v", step.Name, err)
			continue
		}
		output.PrintSuccess("%s", step.Name)
	}

	if failed > 0 {
		output.PrintWarning("%d optional steps failed", failed)
	} else {
		output.PrintSuccess("Maintenance pipeline complete")
	}

	if maintainWithAudit {
		output.PrintInfo("Auditing override entries")
		if code := runAuditFlow(); code != 0 {
			os.Exit(code)
		}
	}
}

// loadPipeline resolves the pipeline file: flag, then config, then the
// default location
func loadPipeline() (*maintain.Pipeline, error) {
	path := maintainStepsFile
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		path = cfg.StepsFile()
	}
	if path == "" {
		defaultPath, err := maintain.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	return maintain.Load(path)
}
