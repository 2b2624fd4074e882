package executors

import (
	"github.com/charmbracelet/log"

	"github.com/yurifrl/edenwallet/pkg/config"
	"github.com/yurifrl/edenwallet/pkg/wallet"
)

// Executor runs operations on batch files that already exist on disk.
type Executor struct {
	logger *log.Logger
	config *config.Config
	wallet *wallet.Client
}

func New(logger *log.Logger, config *config.Config, wallet *wallet.Client) *Executor {
	return &Executor{
		logger: logger,
		config: config,
		wallet: wallet,
	}
}
