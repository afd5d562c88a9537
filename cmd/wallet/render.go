package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"ambulance-finance/internal/models"
	"ambulance-finance/internal/utils"
	"ambulance-finance/internal/views"
	"ambulance-finance/pkg/storage"
)

var ansiColors = map[string]string{
	"text-success":   "\033[32m",
	"text-danger":    "\033[31m",
	"text-warning":   "\033[33m",
	"text-info":      "\033[36m",
	"text-primary":   "\033[34m",
	"text-dark":      "\033[1m",
	"text-secondary": "\033[90m",
}

func colorize(token, text string) string {
	code, ok := ansiColors[token]
	if !ok || os.Getenv("NO_COLOR") != "" {
		return text
	}
	return code + text + "\033[0m"
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderTransactions(w io.Writer, txns []*models.Transaction, currency string) {
	if len(txns) == 0 {
		fmt.Fprintln(w, "No transactions found.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tBALANCE\tSTATUS\tDESCRIPTION")
	for _, t := range txns {
		label := t.Type.Label()
		if t.IsAdjustment && t.RelatedTransactionID != nil {
			label += " of " + t.RelatedTransactionID.Hex()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID.Hex(),
			views.FormatDate(t.CreatedAt),
			colorize(views.TypeColor(t.Type), label),
			utils.FormatCurrency(t.Amount, currency),
			utils.FormatCurrency(t.BalanceAfter, currency),
			t.CollectionStatus.Label(),
			t.Description,
		)
	}
	tw.Flush()
}

func renderWalletSummary(w io.Writer, summary models.WalletSummary, currency string) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Current balance\t%s\n", utils.FormatCurrency(summary.CurrentBalance, currency))
	fmt.Fprintf(tw, "Pending collection\t%s\n", utils.FormatCurrency(summary.PendingBalance, currency))
	fmt.Fprintf(tw, "Earnings (period)\t%s\n", utils.FormatCurrency(summary.TotalEarnings, currency))
	fmt.Fprintf(tw, "Withdrawals (period)\t%s\n", utils.FormatCurrency(summary.TotalWithdrawals, currency))
	lastPayment := "-"
	if summary.LastPaymentDate != nil {
		lastPayment = views.FormatDate(*summary.LastPaymentDate)
	}
	fmt.Fprintf(tw, "Last activity\t%s\n", lastPayment)
	tw.Flush()
}

func renderCollectionSummary(w io.Writer, s *models.CollectionSummary, currency string) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Pending\t%s\t(%d)\n", utils.FormatCurrency(s.PendingAmount, currency), s.PendingCount)
	fmt.Fprintf(tw, "Collected\t%s\t(%d)\n", utils.FormatCurrency(s.CollectedAmount, currency), s.CollectedCount)
	oldest := "-"
	if s.OldestPendingDate != nil {
		oldest = views.FormatDate(*s.OldestPendingDate)
	}
	fmt.Fprintf(tw, "Oldest pending\t%s\t\n", oldest)
	tw.Flush()
}

func renderAdjustmentHistory(w io.Writer, h *models.AdjustmentHistory, currency string) {
	if h.OriginalTransaction != nil {
		fmt.Fprintln(w, "Original:")
		renderTransactions(w, []*models.Transaction{h.OriginalTransaction}, currency)
	}
	fmt.Fprintf(w, "\nAdjustments (%d):\n", h.AdjustmentCount)
	renderTransactions(w, h.Adjustments, currency)
	fmt.Fprintf(w, "\nNet amount: %s\n", utils.FormatCurrency(h.NetAmount, currency))
}

func renderReceipts(w io.Writer, files []*storage.FileInfo) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No receipts stored.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "UPLOADED\tSIZE\tURL")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", views.FormatDate(f.LastModified), f.Size, f.URL)
	}
	tw.Flush()
}

func renderPager(w io.Writer, page, totalPages int, total int64) {
	if totalPages == 0 {
		totalPages = 1
	}
	fmt.Fprintf(w, "Page %d of %d (%d transactions)\n", page, totalPages, total)
}
