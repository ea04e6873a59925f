package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/config"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/logging"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/output"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/render"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/identity"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/storage"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rules"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/version"
)

// errSilentExit makes main exit 1 without printing anything. Commands
// return it after they have already reported the problem themselves.
var errSilentExit = errors.New("exit 1")

// app carries the state shared by every subcommand once the root
// PersistentPreRunE has run.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default(), logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "lk",
		Short:         "Lock & Key: scan cloud access policies for misconfigurations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default "+config.DefaultPath+")")
	pf.StringVar(&a.logLevel, "log-level", "", `Log level: "debug", "info", "warn", "error" or "disabled"`)
	pf.StringVar(&a.logFormat, "log-format", "", `Log format: "auto", "console" or "json"`)
	pf.BoolVar(&a.noColor, "no-color", false, "Disable coloured output")

	root.AddCommand(newScanCmd(a))
	root.AddCommand(newReportCmd(a))
	root.AddCommand(newDoctorCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// init loads configuration and builds the logger. Flags win over config.
func (a *app) init(cmd *cobra.Command) error {
	loader, err := config.NewFileLoader(a.configPath)
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	a.cfg = cfg
	a.logger = logging.Init(logging.Config{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
		Output: cmd.ErrOrStderr(),
	})
	a.logger.Debug().Str("config", loader.ConfigPath()).Msg("configuration loaded")
	return nil
}

// colored reports whether w should receive ANSI colour codes.
func (a *app) colored(w io.Writer) bool {
	if a.noColor || color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), version.Info())
			return err
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with saved scan reports",
	}
	cmd.AddCommand(newReportShowCmd(a))
	return cmd
}

func newReportShowCmd(a *app) *cobra.Command {
	var (
		issue  string
		format string
		flat   bool
	)
	cmd := &cobra.Command{
		Use:   "show <report.json>",
		Short: "Show a saved report grouped by issue type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := render.LoadReport(args[0])
			if err != nil {
				return err
			}
			findings := render.FilterByIssue(r.Result.Findings, issue)
			switch strings.ToLower(format) {
			case config.FormatJSON:
				return render.WriteReportJSON(cmd.OutOrStdout(), r, findings)
			case config.FormatTable:
				if flat {
					output.RenderTable(cmd.OutOrStdout(), findings, output.TableOptions{Colored: a.colored(cmd.OutOrStdout())})
					return nil
				}
				render.RenderReport(cmd.OutOrStdout(), r, findings)
				return nil
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}
	cmd.Flags().StringVar(&issue, "issue", "", `Only show one issue type, e.g. "External Access"`)
	cmd.Flags().StringVar(&format, "format", config.FormatTable, `Output format: "table" or "json"`)
	cmd.Flags().BoolVar(&flat, "flat", false, "Print one findings table instead of grouping by issue type")
	return cmd
}

// allRuleIDs returns every rule ID a policy file may reference: the rules of
// every pack plus the synthesized access-error rule.
func allRuleIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, pack := range [][]rules.Rule{identity.New(), storage.New()} {
		for _, id := range rules.NewRegistryFromPack(pack).IDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return append(ids, rules.AccessErrorRuleID)
}
