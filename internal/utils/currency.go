package utils

import (
	"fmt"
	"math"
)

type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

var SupportedCurrencies = map[string]Currency{
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar"},
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro"},
	"ILS": {Code: "ILS", Symbol: "₪", Name: "Israeli New Shekel"},
	"JOD": {Code: "JOD", Symbol: "JD", Name: "Jordanian Dinar"},
	"SAR": {Code: "SAR", Symbol: "SR", Name: "Saudi Riyal"},
	"EGP": {Code: "EGP", Symbol: "E£", Name: "Egyptian Pound"},
}

func FormatCurrency(amount float64, currencyCode string) string {
	currency, exists := SupportedCurrencies[currencyCode]
	if !exists {
		currency = SupportedCurrencies[DefaultCurrency]
	}

	amount = RoundCurrency(amount)
	if amount < 0 {
		return fmt.Sprintf("-%s%.2f", currency.Symbol, -amount)
	}
	return fmt.Sprintf("%s%.2f", currency.Symbol, amount)
}

func RoundCurrency(amount float64) float64 {
	return math.Round(amount*100) / 100
}
