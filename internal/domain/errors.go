package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")

	ErrValidation        = errors.New("validation error")
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrSameAccount       = fmt.Errorf("%w: source and target accounts must differ", ErrValidation)
	ErrEmptyReference    = fmt.Errorf("%w: reference must not be empty", ErrValidation)

	ErrDomainRule              = errors.New("domain rule violation")
	ErrCurrencyMismatch        = fmt.Errorf("%w: currency mismatch", ErrDomainRule)
	ErrInsufficientFunds       = fmt.Errorf("%w: insufficient funds", ErrDomainRule)
	ErrAccountNotActive        = fmt.Errorf("%w: account is not active", ErrDomainRule)
	ErrInvalidTransactionState = fmt.Errorf("%w: invalid transaction state", ErrDomainRule)
	ErrConcurrencyConflict     = errors.New("concurrency conflict")
	ErrLockNotAcquired         = fmt.Errorf("%w: lock is held by another process", ErrConcurrencyConflict)
	ErrOptimisticLock          = fmt.Errorf("%w: resource was updated by another transaction", ErrConcurrencyConflict)
	ErrPublishFailure          = errors.New("publish failure")
	// ErrPublisherUnavailable публикация отклонена до обращения к брокеру. Попыткой доставки не считается.
	ErrPublisherUnavailable = fmt.Errorf("%w: publisher is unavailable", ErrPublishFailure)
	ErrPoisonMessage           = errors.New("poison message")
	ErrDuplicateRequest        = errors.New("duplicate request")
)

// CurrencyMismatchError операция над суммами разных валют.
type CurrencyMismatchError struct {
	Left  string
	Right string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.Left, e.Right)
}

func (e *CurrencyMismatchError) Is(target error) bool {
	return target == ErrCurrencyMismatch || target == ErrDomainRule
}

type InsufficientFundsError struct {
	Balance   Money
	Attempted Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient funds. Balance: %s, Attempted: %s", e.Balance, e.Attempted)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds || target == ErrDomainRule
}

type AccountNotActiveError struct {
	AccountID AccountID
	Status    AccountStatus
}

func (e *AccountNotActiveError) Error() string {
	return fmt.Sprintf("Account is not active. Status: %s", e.Status)
}

func (e *AccountNotActiveError) Is(target error) bool {
	return target == ErrAccountNotActive || target == ErrDomainRule
}

// NotFoundError сущность с указанным идентификатором отсутствует.
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// Kind закрытое множество видов ошибок. Вызывающий код ветвится по виду, а не по конкретному типу.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindDomainRuleViolation
	KindConcurrencyConflict
	KindDuplicateRequest
	KindPublishFailure
	KindPoisonMessage
	KindIntegrityViolation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDomainRuleViolation:
		return "domain_rule_violation"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindDuplicateRequest:
		return "duplicate_request"
	case KindPublishFailure:
		return "publish_failure"
	case KindPoisonMessage:
		return "poison_message"
	case KindIntegrityViolation:
		return "integrity_violation"
	default:
		return "unknown"
	}
}

// KindOf классифицирует ошибку. nil классифицируется как KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrDomainRule):
		return KindDomainRuleViolation
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrencyConflict
	case errors.Is(err, ErrDuplicateRequest):
		return KindDuplicateRequest
	case errors.Is(err, ErrPoisonMessage):
		return KindPoisonMessage
	case errors.Is(err, ErrPublishFailure):
		return KindPublishFailure
	case errors.Is(err, ErrDuplicateKey):
		return KindIntegrityViolation
	default:
		return KindUnknown
	}
}
