package middlewares

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "RESOURCE_NOT_FOUND"
	CodeDomainRule    = "DOMAIN_RULE_VIOLATION"
	CodeConcurrency   = "CONCURRENCY_ERROR"
	CodeInternalError = "INTERNAL_ERROR"

	internalErrorMessage = "An unexpected error occurred"
)

type ErrorResponse struct {
	ErrorCode string    `json:"errorCode"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// statusAndCode сопоставляет вид ошибки со статусом ответа и кодом ошибки.
func statusAndCode(kind domain.Kind) (int, string) {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest, CodeValidation
	case domain.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case domain.KindDomainRuleViolation:
		return http.StatusUnprocessableEntity, CodeDomainRule
	case domain.KindConcurrencyConflict:
		return http.StatusConflict, CodeConcurrency
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

// publicMessage текст ошибки для клиента. Для типизированных ошибок берем их собственное сообщение
// без префиксов обертки.
func publicMessage(err error) string {
	var (
		insufficient *domain.InsufficientFundsError
		notActive    *domain.AccountNotActiveError
		notFound     *domain.NotFoundError
		mismatch     *domain.CurrencyMismatchError
	)
	switch {
	case errors.As(err, &insufficient):
		return insufficient.Error()
	case errors.As(err, &notActive):
		return notActive.Error()
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &mismatch):
		return mismatch.Error()
	default:
		return err.Error()
	}
}

func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// обрабатываем только первую ошибку
		firstErr := c.Errors[0]
		kind := domain.KindOf(firstErr.Err)
		if firstErr.IsType(gin.ErrorTypeBind) {
			kind = domain.KindValidation
		}

		status, code := statusAndCode(kind)
		msg := internalErrorMessage
		if status != http.StatusInternalServerError {
			msg = publicMessage(firstErr.Err)
		}

		c.JSON(status, ErrorResponse{
			ErrorCode: code,
			Message:   msg,
			Timestamp: time.Now().UTC(),
		})
		c.Abort()
	}
}
