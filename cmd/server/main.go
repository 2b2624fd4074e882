package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/edenwallet/pkg/config"
	"github.com/yurifrl/edenwallet/pkg/edenred"
	"github.com/yurifrl/edenwallet/pkg/executors"
	"github.com/yurifrl/edenwallet/pkg/server"
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
		port    = flag.String("port", "3000", "Server port")
		output  = flag.String("o", "", "Output directory")
		cfgFile = flag.String("c", "", "Config file")
	)
	flag.Parse()

	cfg, err := config.Build(*cfgFile, nil)
	if err != nil {
		logger.Fatal("loading config failed", "err", err)
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	opts, err := cfg.WalletOptions()
	if err != nil {
		logger.Fatal("invalid wallet settings", "err", err)
	}
	sink := wallet.New(logger, opts)
	source := edenred.New(logger, cfg.Edenred.Host, cfg.EdenredOptions())

	srv := server.New(cfg, logger, service.NewProcessor(cfg, logger, source, sink), executors.New(logger, cfg, sink))
	addr := fmt.Sprintf("0.0.0.0:%s", *port)
	logger.Info("starting server", "addr", addr)
	if err := srv.Start(addr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
