package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yurifrl/edenwallet/pkg/config"
	"github.com/yurifrl/edenwallet/pkg/csv"
	"github.com/yurifrl/edenwallet/pkg/edenred"
	"github.com/yurifrl/edenwallet/pkg/executors"
	"github.com/yurifrl/edenwallet/pkg/service"
	"github.com/yurifrl/edenwallet/pkg/wallet"
)

var (
	cliFilters filters
	cfgFile    string
)

// app is everything a subcommand needs, built from the merged configuration.
type app struct {
	config    *config.Config
	logger    *log.Logger
	processor *service.Processor
	executor  *executors.Executor
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "edenwallet-cli",
	})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	opts, err := cfg.WalletOptions()
	if err != nil {
		return nil, err
	}
	sink := wallet.New(logger, opts)
	source := edenred.New(logger, cfg.Edenred.Host, cfg.EdenredOptions())

	return &app{
		config:    cfg,
		logger:    logger,
		processor: service.NewProcessor(cfg, logger, source, sink),
		executor:  executors.New(logger, cfg, sink),
	}, nil
}

var rootCmd = &cobra.Command{
	Use:           "edenwallet-cli",
	Short:         "Import Edenred card transactions into Wallet",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the card movements, write a batch file and import it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		res, err := a.processor.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the card movements to a batch file without importing it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cliFilters.minSet = cmd.Flags().Changed("min")
		cliFilters.maxSet = cmd.Flags().Changed("max")
		if err := cliFilters.validate(); err != nil {
			return fmt.Errorf("invalid date filter: %w", err)
		}
		a, err := setup(cmd)
		if err != nil {
			return err
		}

		stdout, _ := cmd.Flags().GetBool("stdout")
		if !stdout && !cliFilters.active() {
			path, err := a.processor.Export(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		}

		// Filtered exports are previews: they are printed, never written.
		records, err := a.processor.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		out, err := csv.Create(records, cliFilters.toFilterFunc())
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Import an existing batch file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		res, err := a.executor.Apply(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Preview which rows of a batch file would be imported (dry-run)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("Plan preview for %s\n", args[0])
		_, err = a.executor.Plan(cmd.Context(), os.Stdout, args[0])
		return err
	},
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List the batches already imported into Wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetBool("raw")
		return a.executor.Batches(cmd.Context(), os.Stdout, raw)
	},
}

func init() {
	def := config.Default()

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", def.OutputDir, "Directory batch files are written to")
	rootCmd.PersistentFlags().Duration("timeout", def.StepTimeout, "Timeout of each remote call")
	rootCmd.PersistentFlags().String("timezone", "", "Time zone batch dates are compared in (default local)")
	rootCmd.PersistentFlags().String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")

	// only-new applies wherever a file gets imported
	for _, c := range []*cobra.Command{syncCmd, uploadCmd} {
		c.Flags().Bool("only-new", def.OnlyNew, "Send only the rows newer than the latest imported batch")
	}

	// Filter flags, export previews only
	exportCmd.Flags().Bool("stdout", false, "Print the batch instead of writing it")
	exportCmd.Flags().StringVar(&cliFilters.startDate, "start", "", "Start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&cliFilters.endDate, "end", "", "End date (YYYY-MM-DD)")
	exportCmd.Flags().Float64Var(&cliFilters.minAmount, "min", 0, "Minimum amount")
	exportCmd.Flags().Float64Var(&cliFilters.maxAmount, "max", 0, "Maximum amount")
	exportCmd.Flags().StringVar(&cliFilters.note, "note", "", "Filter by note (case insensitive)")

	batchesCmd.Flags().Bool("raw", false, "Dump the batches instead of printing YAML")

	rootCmd.AddCommand(syncCmd, exportCmd, uploadCmd, planCmd, batchesCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
