package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxScale количество знаков после запятой, которое хранилище сохраняет без округления (NUMERIC(19, 4)).
const MaxScale = 4

// Money денежная сумма в конкретной валюте. Все бинарные операции требуют совпадения валют.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: strings.ToUpper(strings.TrimSpace(currency)),
	}
}

// MoneyOf разбирает сумму из строки. Точность не теряется.
func MoneyOf(amount string, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: invalid amount %q", ErrValidation, amount)
	}
	return NewMoney(d, currency), nil
}

func ZeroMoney(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// IsGreaterThanOrEqual сравнивает суммы одной валюты.
func (m Money) IsGreaterThanOrEqual(other Money) (bool, error) {
	if err := m.checkCurrency(other); err != nil {
		return false, err
	}
	return m.Amount.GreaterThanOrEqual(other.Amount), nil
}

// FitsScale сообщает, представима ли сумма не более чем MaxScale знаками после запятой.
// Незначащие нули не учитываются: 10.00000 представима, 10.00005 нет.
func (m Money) FitsScale() bool {
	return m.Amount.Equal(m.Amount.Truncate(MaxScale))
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency
}

func (m Money) checkCurrency(other Money) error {
	if m.Currency != other.Currency {
		return &CurrencyMismatchError{Left: m.Currency, Right: other.Currency}
	}
	return nil
}
