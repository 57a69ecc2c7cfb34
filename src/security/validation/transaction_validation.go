package validation

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/utils"
)

const MaxTitleLength = 200

var ErrValidationFailed = errors.New("validation failed")

// TransactionInput is the body of a create request.
type TransactionInput struct {
	Title       string              `json:"title"`
	Amount      decimal.NullDecimal `json:"amount"`
	Type        string              `json:"type"`
	Frequency   string              `json:"frequency"` // empty means ONCE
	Date        string              `json:"date"`
	NextDueDate *string             `json:"nextDueDate,omitempty"`
}

// TransactionPatch is the body of an update request. Nil fields are left unchanged.
type TransactionPatch struct {
	Title           *string          `json:"title,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Type            *string          `json:"type,omitempty"`
	Frequency       *string          `json:"frequency,omitempty"`
	Date            *string          `json:"date,omitempty"`
	NextDueDate     *string          `json:"nextDueDate,omitempty"`
	IsGenerated     *bool            `json:"isGenerated,omitempty"`
	IsDeletedByUser *bool            `json:"isDeletedByUser,omitempty"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}

func validateTitle(raw string) (string, error) {
	title := SanitizeTitle(raw)
	if title == "" {
		return "", invalid("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", invalid("title must be at most %d characters", MaxTitleLength)
	}
	return title, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount must be greater than zero")
	}
	return nil
}

func validateDate(field, raw string) (string, error) {
	t, err := utils.ParseDate(raw)
	if err != nil {
		return "", invalid("%s must be a YYYY-MM-DD date", field)
	}
	return utils.FormatDate(t), nil
}

func validateNextDueDate(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	date, err := validateDate("nextDueDate", *raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// ValidateTransactionInput checks every field of a create request and returns
// the transaction to store. All field errors are reported together.
func ValidateTransactionInput(in TransactionInput) (models.Transaction, error) {
	var result *multierror.Error
	var tx models.Transaction
	var err error

	if tx.Title, err = validateTitle(in.Title); err != nil {
		result = multierror.Append(result, err)
	}

	if !in.Amount.Valid {
		result = multierror.Append(result, invalid("amount is required"))
	} else if err := validateAmount(in.Amount.Decimal); err != nil {
		result = multierror.Append(result, err)
	} else {
		tx.Amount = in.Amount.Decimal
	}

	if tx.Type, err = models.ParseTransactionType(in.Type); err != nil {
		result = multierror.Append(result, invalid("%v", err))
	}

	if in.Frequency == "" {
		tx.Frequency = models.FrequencyOnce
	} else if tx.Frequency, err = models.ParseFrequency(in.Frequency); err != nil {
		result = multierror.Append(result, invalid("%v", err))
	}

	if tx.Date, err = validateDate("date", in.Date); err != nil {
		result = multierror.Append(result, err)
	}

	if tx.NextDueDate, err = validateNextDueDate(in.NextDueDate); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.L.Debug("Transaction input rejected", "error", err)
		return models.Transaction{}, err
	}
	return tx, nil
}

// ApplyTransactionPatch returns tx with the provided patch fields applied.
func ApplyTransactionPatch(tx models.Transaction, p TransactionPatch) (models.Transaction, error) {
	var result *multierror.Error
	out := tx.Clone()

	if p.Title != nil {
		title, err := validateTitle(*p.Title)
		if err != nil {
			result = multierror.Append(result, err)
		}
		out.Title = title
	}
	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			result = multierror.Append(result, err)
		}
		out.Amount = *p.Amount
	}
	if p.Type != nil {
		typ, err := models.ParseTransactionType(*p.Type)
		if err != nil {
			result = multierror.Append(result, invalid("%v", err))
		}
		out.Type = typ
	}
	if p.Frequency != nil {
		freq, err := models.ParseFrequency(*p.Frequency)
		if err != nil {
			result = multierror.Append(result, invalid("%v", err))
		}
		out.Frequency = freq
	}
	if p.Date != nil {
		date, err := validateDate("date", *p.Date)
		if err != nil {
			result = multierror.Append(result, err)
		}
		out.Date = date
	}
	if p.NextDueDate != nil {
		next, err := validateNextDueDate(p.NextDueDate)
		if err != nil {
			result = multierror.Append(result, err)
		}
		out.NextDueDate = next
	}
	if p.IsGenerated != nil {
		out.IsGenerated = *p.IsGenerated
	}
	if p.IsDeletedByUser != nil {
		out.IsDeletedByUser = *p.IsDeletedByUser
	}
	// Only generated occurrences have tombstones; user rows are hard-deleted.
	if out.IsDeletedByUser && !out.IsGenerated {
		result = multierror.Append(result, invalid("only generated occurrences can be marked deleted"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return tx, err
	}
	return out, nil
}
