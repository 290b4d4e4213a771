package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountID = uuid.UUID

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusFrozen AccountStatus = "FROZEN"
	AccountStatusClosed AccountStatus = "CLOSED"
)

// CanTransact движение средств разрешено только по активным счетам.
func (s AccountStatus) CanTransact() bool {
	return s == AccountStatusActive
}

// AccountNumber номер счета. При выводе в логи маскируется.
type AccountNumber string

func (n AccountNumber) String() string {
	if len(n) < 4 { //nolint:mnd
		return "****"
	}
	return "****" + string(n[len(n)-4:])
}

// Account банковский счет. Version используется для оптимистичной блокировки и увеличивается
// на каждую сохраненную мутацию.
type Account struct {
	ID        AccountID
	Name      string
	Number    AccountNumber
	Balance   Money
	Status    AccountStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount открывает новый активный счет.
func NewAccount(number AccountNumber, name string, initial Money) *Account {
	return &Account{
		ID:      uuid.New(),
		Name:    name,
		Number:  number,
		Balance: initial,
		Status:  AccountStatusActive,
	}
}

func (a *Account) Currency() string {
	return a.Balance.Currency
}

// Deposit зачисляет amount на счет. При ошибке состояние счета не меняется.
func (a *Account) Deposit(amount Money) error {
	if err := a.validateActiveStatus(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	balance, err := a.Balance.Add(amount)
	if err != nil {
		return err
	}
	a.Balance = balance
	return nil
}

// Withdraw списывает amount со счета. Баланс не может стать отрицательным.
// При ошибке состояние счета не меняется.
func (a *Account) Withdraw(amount Money) error {
	if err := a.validateActiveStatus(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	balance, err := a.Balance.Subtract(amount)
	if err != nil {
		return err
	}
	if balance.IsNegative() {
		return &InsufficientFundsError{Balance: a.Balance, Attempted: amount}
	}
	a.Balance = balance
	return nil
}

func (a *Account) validateActiveStatus() error {
	if !a.Status.CanTransact() {
		return &AccountNotActiveError{AccountID: a.ID, Status: a.Status}
	}
	return nil
}
