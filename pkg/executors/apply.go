package executors

import (
	"context"

	"github.com/yurifrl/edenwallet/pkg/wallet"
)

// Apply imports file into Wallet, honouring the only_new setting.
func (e *Executor) Apply(ctx context.Context, file string) (*wallet.Result, error) {
	e.logger.Debug("applying batch file", "file", file, "only_new", e.config.OnlyNew)

	res, err := e.wallet.UploadFile(ctx, e.config.WalletCredentials(), file, e.config.OnlyNew)
	if err != nil {
		return nil, err
	}
	e.logger.Info(res.Message, "file", file, "rows", res.Rows, "skipped", res.Skipped, "batch_id", res.BatchID)
	return res, nil
}
