package validators

import (
	"fmt"

	"ambulance-finance/internal/models"
	"ambulance-finance/internal/utils"
)

func ValidatePayment(req *models.PaymentRequest) ValidationErrors {
	req.Description = SanitizeInput(req.Description)
	return ValidateStruct(req)
}

func ValidateAdjustment(req *models.AdjustmentRequest) ValidationErrors {
	req.OriginalTransactionID = SanitizeInput(req.OriginalTransactionID)
	req.AdjustmentReason = SanitizeInput(req.AdjustmentReason)
	return ValidateStruct(req)
}

func ValidateCollect(req *models.CollectRequest) ValidationErrors {
	req.CollectionNotes = SanitizeInput(req.CollectionNotes)
	req.ReceiptURL = SanitizeInput(req.ReceiptURL)
	return ValidateStruct(req)
}

func ValidateEntry(req *models.EntryRequest) ValidationErrors {
	req.Description = SanitizeInput(req.Description)
	req.PatientName = SanitizeInput(req.PatientName)
	req.TransferFrom = SanitizeInput(req.TransferFrom)
	req.TransferTo = SanitizeInput(req.TransferTo)
	return ValidateStruct(req)
}

// ValidateFilter checks listing filters on the server. The client forwards
// them verbatim; this is where malformed values are rejected.
func ValidateFilter(filter *models.TransactionFilter) ValidationErrors {
	var errors ValidationErrors

	if filter.Type != "" {
		if _, err := models.ParseTransactionType(filter.Type); err != nil {
			errors = append(errors, ValidationError{
				Field:   "type",
				Tag:     "transaction_type",
				Value:   filter.Type,
				Message: ErrInvalidType.Error(),
			})
		}
	}

	for field, value := range map[string]string{"startDate": filter.StartDate, "endDate": filter.EndDate} {
		if value == "" {
			continue
		}
		if _, err := utils.ParseDate(value, nil); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Tag:     "date",
				Value:   value,
				Message: fmt.Sprintf("%s: expected YYYY-MM-DD", ErrInvalidDate),
			})
		}
	}

	if filter.StartDate != "" && filter.EndDate != "" && filter.StartDate > filter.EndDate && len(errors) == 0 {
		errors = append(errors, ValidationError{
			Field:   "endDate",
			Tag:     "date_range",
			Value:   filter.EndDate,
			Message: "endDate must not be before startDate",
		})
	}

	return errors
}
