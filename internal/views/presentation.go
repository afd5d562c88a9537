package views

import (
	"time"

	"ambulance-finance/internal/models"
)

const (
	FallbackIcon  = "fa-money-bill"
	FallbackColor = "text-secondary"
	FallbackBadge = "bg-secondary"
)

var typeIcons = map[models.TransactionType]string{
	models.TransactionTypeTripEarning:        "fa-ambulance",
	models.TransactionTypeTripCollection:     "fa-hand-holding-usd",
	models.TransactionTypePayment:            "fa-money-check-alt",
	models.TransactionTypeWithdrawal:         "fa-arrow-circle-down",
	models.TransactionTypeAdjustment:         "fa-balance-scale",
	models.TransactionTypeFuelExpense:        "fa-gas-pump",
	models.TransactionTypeMaintenanceExpense: "fa-tools",
	models.TransactionTypeBonus:              "fa-gift",
	models.TransactionTypeDeduction:          "fa-minus-circle",
}

var typeColors = map[models.TransactionType]string{
	models.TransactionTypeTripEarning:        "text-success",
	models.TransactionTypeTripCollection:     "text-info",
	models.TransactionTypePayment:            "text-primary",
	models.TransactionTypeWithdrawal:         "text-warning",
	models.TransactionTypeAdjustment:         "text-dark",
	models.TransactionTypeFuelExpense:        "text-danger",
	models.TransactionTypeMaintenanceExpense: "text-danger",
	models.TransactionTypeBonus:              "text-success",
	models.TransactionTypeDeduction:          "text-danger",
}

var statusBadges = map[models.CollectionStatus]string{
	models.CollectionStatusPending:       "bg-warning",
	models.CollectionStatusCollected:     "bg-success",
	models.CollectionStatusNotApplicable: "bg-light",
}

// TypeIcon never returns an empty token; unknown kinds get FallbackIcon.
func TypeIcon(t models.TransactionType) string {
	if icon, ok := typeIcons[t]; ok {
		return icon
	}
	return FallbackIcon
}

func TypeColor(t models.TransactionType) string {
	if color, ok := typeColors[t]; ok {
		return color
	}
	return FallbackColor
}

func StatusBadge(s models.CollectionStatus) string {
	if badge, ok := statusBadges[s]; ok {
		return badge
	}
	return FallbackBadge
}

// FormatDate renders t for display, or "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006 15:04")
}
