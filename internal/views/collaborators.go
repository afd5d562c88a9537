package views

import "ambulance-finance/internal/models"

// Notifier is the toast surface.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// UserProvider resolves the signed-in user. CurrentUser returns nil when
// nobody is signed in.
type UserProvider interface {
	CurrentUser() *models.CurrentUser
}

type HeaderSetter interface {
	SetHeader(title string)
}

type Router interface {
	Navigate(path string)
}

// Translator maps a message key to display text.
type Translator interface {
	T(key string) string
}

const (
	MsgWalletLoadFailed   = "wallet.load_failed"
	MsgPaymentsLoadFailed = "wallet.payments_load_failed"
	MsgWithdrawRequested  = "wallet.withdraw_requested"
	MsgHistoryLoadFailed  = "history.load_failed"
)

// Messages is a Translator backed by a fixed table. Unknown keys translate
// to themselves.
type Messages map[string]string

func (m Messages) T(key string) string {
	if text, ok := m[key]; ok {
		return text
	}
	return key
}

var EnglishMessages = Messages{
	MsgWalletLoadFailed:   "Failed to load wallet data",
	MsgPaymentsLoadFailed: "Failed to load payments",
	MsgWithdrawRequested:  "Withdrawal request submitted",
	MsgHistoryLoadFailed:  "Failed to load transactions",
}
