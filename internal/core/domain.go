package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// MaxRemarkLength bounds the free-text remark, counted in runes.
const MaxRemarkLength = 200

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Bill is a single income or expense record. Timestamp is epoch milliseconds.
	Bill struct {
		ID        int64           `json:"id"`
		Type      TransactionType `json:"type"`
		Amount    Money           `json:"amount"`
		Category  string          `json:"category"`
		Remark    string          `json:"remark,omitempty"`
		Timestamp int64           `json:"timestamp"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrRemarkTooLong    = errors.New("remark too long (max 200 characters)")
	ErrInvalidID        = errors.New("invalid id")
)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Time returns the bill timestamp as a time.Time in loc. A nil loc means time.Local.
func (b Bill) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(b.Timestamp).In(loc)
}

// Validate checks every field except ID, which the store owns.
func (b Bill) Validate() error {
	if err := b.Type.Validate(); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(b.Remark) > MaxRemarkLength {
		return ErrRemarkTooLong
	}
	if b.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	return nil
}

// ValidateStored additionally requires a positive id.
func (b Bill) ValidateStored() error {
	if b.ID <= 0 {
		return ErrInvalidID
	}
	return b.Validate()
}

// IsValidationError reports whether err comes from bill validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrEmptyCategory) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrRemarkTooLong) ||
		errors.Is(err, ErrInvalidID)
}
