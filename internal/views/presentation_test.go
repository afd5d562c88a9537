package views

import (
	"testing"
	"time"

	"ambulance-finance/internal/models"
)

func TestPresentationLookupsFallBack(t *testing.T) {
	unknown := models.TransactionType("mystery")
	if got := TypeIcon(unknown); got != FallbackIcon {
		t.Errorf("TypeIcon(unknown) = %q", got)
	}
	if got := TypeColor(unknown); got != FallbackColor {
		t.Errorf("TypeColor(unknown) = %q", got)
	}
	if got := StatusBadge("archived"); got != FallbackBadge {
		t.Errorf("StatusBadge(unknown) = %q", got)
	}

	for _, typ := range models.TransactionTypes {
		if TypeIcon(typ) == "" || TypeColor(typ) == "" {
			t.Errorf("%s has an empty presentation token", typ)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Time{}); got != "-" {
		t.Errorf("FormatDate(zero) = %q", got)
	}
	if got := FormatDate(time.Date(2024, 2, 29, 14, 5, 0, 0, time.UTC)); got != "Feb 29, 2024 14:05" {
		t.Errorf("FormatDate() = %q", got)
	}
}

func TestMessagesFallBackToKey(t *testing.T) {
	if got := EnglishMessages.T("nope"); got != "nope" {
		t.Errorf("T(unknown) = %q", got)
	}
}
