package service

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yurifrl/edenwallet/pkg/config"
	"github.com/yurifrl/edenwallet/pkg/csv"
	"github.com/yurifrl/edenwallet/pkg/edenred"
	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/models"
	"github.com/yurifrl/edenwallet/pkg/wallet"
)

const ReasonWriteFile = "writing transactions file failed"

// Source supplies the card movements.
type Source interface {
	Movements(ctx context.Context, creds edenred.Credentials) ([]edenred.Movement, error)
}

// Sink imports a batch file.
type Sink interface {
	UploadFile(ctx context.Context, creds wallet.Credentials, path string, onlyNew bool) (*wallet.Result, error)
}

type Processor struct {
	config *config.Config
	logger *log.Logger
	source Source
	sink   Sink
	now    func() time.Time
}

func NewProcessor(config *config.Config, logger *log.Logger, source Source, sink Sink) *Processor {
	return &Processor{
		config: config,
		logger: logger,
		source: source,
		sink:   sink,
		now:    time.Now,
	}
}

// Run fetches the movements, writes them to a new batch file and imports it.
func (p *Processor) Run(ctx context.Context) (*wallet.Result, error) {
	logger := p.logger.With("run", uuid.NewString())

	path, err := p.export(ctx, logger)
	if err != nil {
		return nil, err
	}

	res, err := p.sink.UploadFile(ctx, p.config.WalletCredentials(), path, p.config.OnlyNew)
	if err != nil {
		logger.Error("import failed", "file", path, "reason", failure.Reason(err), "error", err)
		return nil, err
	}
	logger.Info(res.Message, "file", path, "status", res.Status, "rows", res.Rows, "batch_id", res.BatchID)
	return res, nil
}

// Export writes the current movements to a batch file and returns its path.
func (p *Processor) Export(ctx context.Context) (string, error) {
	return p.export(ctx, p.logger)
}

func (p *Processor) export(ctx context.Context, logger *log.Logger) (string, error) {
	records, err := p.fetch(ctx, logger)
	if err != nil {
		return "", err
	}

	path, err := csv.WriteFile(p.config.OutputDir, p.now(), records)
	if err != nil {
		return "", failure.New(failure.Filesystem, ReasonWriteFile, err)
	}
	logger.Info("wrote transactions file", "file", path, "count", len(records))
	return path, nil
}

// Fetch returns the current movements as batch file records without writing
// anything.
func (p *Processor) Fetch(ctx context.Context) ([]*models.Transaction, error) {
	return p.fetch(ctx, p.logger)
}

func (p *Processor) fetch(ctx context.Context, logger *log.Logger) ([]*models.Transaction, error) {
	movements, err := p.source.Movements(ctx, p.config.EdenredCredentials())
	if err != nil {
		logger.Error("fetching transactions failed", "reason", failure.Reason(err), "error", err)
		return nil, err
	}
	return Transactions(movements), nil
}

// Transactions maps card movements onto batch file records.
func Transactions(movements []edenred.Movement) []*models.Transaction {
	out := make([]*models.Transaction, 0, len(movements))
	for _, m := range movements {
		out = append(out, &models.Transaction{
			Date:   m.TransactionDate,
			Note:   m.TransactionName,
			Amount: m.Amount,
		})
	}
	return out
}
