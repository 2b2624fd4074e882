package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/edenwallet/pkg/config"
	"github.com/yurifrl/edenwallet/pkg/edenred"
	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/service"
	"github.com/yurifrl/edenwallet/pkg/wallet"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "edenwallet",
	})

	var (
		cfgFile    string
		outputPath string
	)
	flag.StringVar(&cfgFile, "c", "", "Config file (default: ./config.yaml)")
	flag.StringVar(&outputPath, "o", "", "Output directory for batch files")
	flag.Parse()

	if len(flag.Args()) != 0 {
		logger.Error("invalid usage", "args", flag.Args())
		fmt.Fprintf(os.Stderr, "Usage: edenwallet [-c config] [-o output_dir]\n")
		os.Exit(1)
	}

	cfg, err := config.Build(cfgFile, nil)
	if err != nil {
		logger.Fatal("loading config failed", "error", err)
	}
	if outputPath != "" {
		cfg.OutputDir = outputPath
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	opts, err := cfg.WalletOptions()
	if err != nil {
		logger.Fatal("invalid wallet settings", "error", err)
	}
	processor := service.NewProcessor(cfg, logger,
		edenred.New(logger, cfg.Edenred.Host, cfg.EdenredOptions()),
		wallet.New(logger, opts))

	res, err := processor.Run(context.Background())
	if err != nil {
		logger.Fatal(failure.Reason(err), "error", err)
	}
	fmt.Println(res.Message)
}
