package models

import (
	"math"
	"time"
)

// WalletSummary is the client-side digest shown on the wallet screen. It is
// rebuilt on every load and never persisted.
type WalletSummary struct {
	CurrentBalance   float64    `json:"currentBalance"`
	PendingBalance   float64    `json:"pendingBalance"`
	TotalEarnings    float64    `json:"totalEarnings"`
	TotalWithdrawals float64    `json:"totalWithdrawals"`
	LastPaymentDate  *time.Time `json:"lastPaymentDate,omitempty"`
}

// BuildWalletSummary derives the wallet digest.
//
// The current balance is the balanceAfter of latest, the most recent
// transaction of the user; it is not a sum over history and relies on the
// server listing transactions newest first. Pending balance comes from the
// collection summary. Earnings and withdrawals are totals over the displayed
// page only. Any argument may be nil.
func BuildWalletSummary(latest *Transaction, summary *CollectionSummary, page []*Transaction) WalletSummary {
	var ws WalletSummary

	if latest != nil {
		ws.CurrentBalance = latest.BalanceAfter
		createdAt := latest.CreatedAt
		ws.LastPaymentDate = &createdAt
	}

	if summary != nil {
		ws.PendingBalance = summary.PendingAmount
	}

	ws.TotalEarnings, ws.TotalWithdrawals = PeriodTotals(page)

	return ws
}

// PeriodTotals sums earning credits and withdrawal debits over txns.
// Withdrawals are reported as a positive figure.
func PeriodTotals(txns []*Transaction) (earnings, withdrawals float64) {
	for _, t := range txns {
		if t == nil {
			continue
		}
		switch {
		case t.Type.IsEarning():
			earnings += t.Amount
		case t.Type.IsWithdrawal():
			withdrawals += math.Abs(t.Amount)
		}
	}
	return earnings, withdrawals
}
