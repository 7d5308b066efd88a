package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/export"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/pipeline"
	"github.com/sells-group/compliance-cli/internal/progress"
)

var (
	checkProfile profileFlags
	checkXLSX    string
	checkOutput  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a compliance check for one business profile",
	Example: `  compliance-cli check --state CA --city "San Francisco" --industry restaurant --employees 20
  compliance-cli check --profile profile.yaml --xlsx report.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := checkProfile.profile(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate("check"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := pipeline.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close() //nolint:errcheck

		res, err := env.Run(ctx, profile, progress.LogSink{})
		if err != nil {
			return err
		}

		if checkXLSX != "" {
			if err := export.SaveXLSX(checkXLSX, res); err != nil {
				return err
			}
			zap.L().Info("wrote workbook", zap.String("path", checkXLSX))
		}
		return writeOutput(cmd.OutOrStdout(), checkOutput, res)
	},
}

// writeOutput writes res as indented JSON to path, or to stdout when path
// is empty or "-".
func writeOutput(stdout io.Writer, path string, res *model.Result) error {
	if path == "" || path == "-" {
		return writeResult(stdout, res)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close() //nolint:errcheck
	return writeResult(f, res)
}

func writeResult(w io.Writer, res *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(res), "encode result")
}

func init() {
	checkProfile.register(checkCmd)
	checkCmd.Flags().StringVar(&checkXLSX, "xlsx", "", "also write the result as an XLSX workbook")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "write JSON to this file instead of stdout")
	rootCmd.AddCommand(checkCmd)
}
