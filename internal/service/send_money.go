package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

const (
	LockKeyPrefix      = "txn_lock:"
	maxReferenceLength = 255
)

type TransferStatus string

const (
	TransferStatusCompleted        TransferStatus = "COMPLETED"
	TransferStatusAlreadyProcessed TransferStatus = "ALREADY_PROCESSED"
)

type SendMoneyArgs struct {
	FromAccountID domain.AccountID
	ToAccountID   domain.AccountID
	Amount        decimal.Decimal
	Currency      string
	Reference     string
}

type SendMoneyResult struct {
	Status    TransferStatus
	Reference string
}

type SendMoneyService struct {
	guard    *IdempotencyGuard
	locker   Locker
	executor TransferExecutor
	log      *logrus.Entry
}

func NewSendMoneyService(
	guard *IdempotencyGuard,
	locker Locker,
	executor TransferExecutor,
	logger *logrus.Logger,
) *SendMoneyService {
	return &SendMoneyService{
		guard:    guard,
		locker:   locker,
		executor: executor,
		log:      logger.WithField("component", "send_money"),
	}
}

// SendMoney выполняет перевод не более одного раза для каждого reference.
//
// Алгоритм работы:
//  1. Валидация аргументов.
//  2. Быстрая проверка идемпотентности. Дубликат => ALREADY_PROCESSED без побочных эффектов.
//  3. Под распределенной блокировкой txn_lock:<reference>: повторная проверка, перевод, отметка в кэше.
//     Блокировка занята => domain.ErrLockNotAcquired.
//  4. Нарушение уникальности reference в хранилище означает, что перевод уже выполнен параллельно:
//     возвращается ALREADY_PROCESSED.
func (s *SendMoneyService) SendMoney(ctx context.Context, args SendMoneyArgs) (*SendMoneyResult, error) {
	cmd, err := args.toCommand()
	if err != nil {
		return nil, err
	}

	duplicate, err := s.guard.IsDuplicate(ctx, cmd.Reference)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return s.alreadyProcessed(cmd.Reference), nil
	}

	status := TransferStatusCompleted
	lockErr := s.locker.ExecuteInLock(ctx, LockKeyPrefix+cmd.Reference, func(c context.Context) error {
		dup, checkErr := s.guard.IsDuplicate(c, cmd.Reference)
		if checkErr != nil {
			return checkErr
		}
		if dup {
			status = TransferStatusAlreadyProcessed
			return nil
		}

		if _, execErr := s.executor.Execute(c, cmd); execErr != nil {
			return execErr //nolint:wrapcheck
		}
		s.guard.MarkProcessed(c, cmd.Reference)
		return nil
	})

	if lockErr != nil {
		if errors.Is(lockErr, domain.ErrDuplicateKey) {
			s.guard.MarkProcessed(ctx, cmd.Reference)
			return s.alreadyProcessed(cmd.Reference), nil
		}
		return nil, lockErr //nolint:wrapcheck
	}

	if status == TransferStatusAlreadyProcessed {
		return s.alreadyProcessed(cmd.Reference), nil
	}
	return &SendMoneyResult{Status: TransferStatusCompleted, Reference: cmd.Reference}, nil
}

func (s *SendMoneyService) alreadyProcessed(reference string) *SendMoneyResult {
	s.log.WithField("reference", reference).Info("duplicate transfer request")
	return &SendMoneyResult{Status: TransferStatusAlreadyProcessed, Reference: reference}
}

func (a SendMoneyArgs) toCommand() (domain.TransferCommand, error) {
	var cmd domain.TransferCommand

	reference := strings.TrimSpace(a.Reference)
	if reference == "" {
		return cmd, domain.ErrEmptyReference
	}
	if len(reference) > maxReferenceLength {
		return cmd, fmt.Errorf("%w: reference is longer than %d bytes", domain.ErrValidation, maxReferenceLength)
	}
	if !a.Amount.IsPositive() {
		return cmd, domain.ErrNonPositiveAmount
	}
	if len(strings.TrimSpace(a.Currency)) != 3 { //nolint:mnd
		return cmd, fmt.Errorf("%w: invalid currency %q", domain.ErrValidation, a.Currency)
	}
	amount := domain.NewMoney(a.Amount, a.Currency)
	if !amount.FitsScale() {
		return cmd, fmt.Errorf("%w: amount %s has more than %d decimal places",
			domain.ErrValidation, a.Amount, domain.MaxScale)
	}
	if a.FromAccountID == a.ToAccountID {
		return cmd, domain.ErrSameAccount
	}

	return domain.TransferCommand{
		Reference:     reference,
		FromAccountID: a.FromAccountID,
		ToAccountID:   a.ToAccountID,
		Amount:        amount,
	}, nil
}
