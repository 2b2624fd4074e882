package executors

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/k0kubun/pp/v3"
	"gopkg.in/yaml.v3"

	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/reconcile"
	"github.com/yurifrl/edenwallet/pkg/wallet"
	"github.com/yurifrl/edenwallet/pkg/wire"
)

// Batch is one remote import as printed by Batches.
type Batch struct {
	ID       string `yaml:"id" json:"id"`
	FileName string `yaml:"file_name" json:"file_name"`
	// Exported is the time encoded in FileName, empty when unreadable.
	Exported string `yaml:"exported,omitempty" json:"exported,omitempty"`
}

// ListBatches returns the imports known to Wallet, most recent first.
func (e *Executor) ListBatches(ctx context.Context) ([]Batch, error) {
	imports, err := e.imports(ctx)
	if err != nil {
		return nil, err
	}
	return e.batches(imports), nil
}

func (e *Executor) imports(ctx context.Context) (*wire.Imports, error) {
	s, err := e.wallet.Login(ctx, e.config.WalletCredentials())
	if err != nil {
		return nil, failure.New(failure.Authentication, wallet.ReasonLogin, err)
	}
	imports, err := e.wallet.Imports(ctx, s)
	if err != nil {
		return nil, failure.New(failure.List, wallet.ReasonImports, err)
	}
	return imports, nil
}

func (e *Executor) batches(imports *wire.Imports) []Batch {
	out := make([]Batch, 0, len(imports.Files))
	for _, f := range imports.Files {
		b := Batch{ID: f.ID, FileName: f.FileName}
		if t, err := reconcile.Cutoff(f.FileName, e.wallet.Location()); err == nil {
			b.Exported = t.Format(time.RFC3339)
		}
		out = append(out, b)
	}
	return out
}

// Batches prints the remote imports as YAML, or dumps the decoded import
// list message when raw is set.
func (e *Executor) Batches(ctx context.Context, w io.Writer, raw bool) error {
	imports, err := e.imports(ctx)
	if err != nil {
		return err
	}

	if raw {
		printer := pp.New()
		printer.SetOutput(w)
		printer.SetColoringEnabled(false)
		_, err := printer.Println(imports)
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"batches": e.batches(imports)}); err != nil {
		return fmt.Errorf("failed to encode batches: %w", err)
	}
	return enc.Close()
}
