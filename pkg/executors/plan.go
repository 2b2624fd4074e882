package executors

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/yurifrl/edenwallet/pkg/failure"
	"github.com/yurifrl/edenwallet/pkg/reconcile"
	"github.com/yurifrl/edenwallet/pkg/wallet"
)

// Plan previews what Apply would send for file without uploading anything.
// Rows already carried by the latest batch are printed with "=", rows to be
// sent with "+" and rows without a readable date with "!".
func (e *Executor) Plan(ctx context.Context, w io.Writer, file string) (*reconcile.Report, error) {
	e.logger.Debug("planning batch file", "file", file)

	content, err := wallet.ReadBatchFile(file)
	if err != nil {
		return nil, err
	}

	s, err := e.wallet.Login(ctx, e.config.WalletCredentials())
	if err != nil {
		return nil, failure.New(failure.Authentication, wallet.ReasonLogin, err)
	}
	imports, err := e.wallet.Imports(ctx, s)
	if err != nil {
		return nil, failure.New(failure.List, wallet.ReasonImports, err)
	}

	// With no usable reference every row counts as new.
	var cutoff time.Time
	if last := imports.Latest(); last != nil && e.config.OnlyNew {
		if c, err := reconcile.Cutoff(last.FileName, e.wallet.Location()); err != nil {
			e.logger.Warn("couldn't read last uploaded date", "batch", last.FileName, "error", err)
		} else {
			cutoff = c
			fmt.Fprintf(w, "Last batch %s (%s), cutoff %s\n", last.FileName, last.ID, cutoff.Format(time.RFC3339))
		}
	}
	report := reconcile.Build(content, cutoff, e.wallet.Location())

	syncedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	addedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	invalidStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red

	for _, entry := range report.Items {
		switch entry.Status {
		case reconcile.Synced:
			fmt.Fprintln(w, syncedStyle.Render("= "+entry.Line))
		case reconcile.ToAdd:
			fmt.Fprintln(w, addedStyle.Render("+ "+entry.Line))
		default:
			fmt.Fprintln(w, invalidStyle.Render("! "+entry.Line))
		}
	}

	if report.MissingCount() == 0 {
		fmt.Fprintf(w, "\nPlan: all %d transaction(s) already imported\n", report.InSyncCount())
	} else {
		fmt.Fprintf(w, "\nPlan: %d transaction(s) will be imported, %d already imported\n", report.MissingCount(), report.InSyncCount())
	}
	return report, nil
}
