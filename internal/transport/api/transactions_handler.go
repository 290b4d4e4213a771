package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/internal/service"
)

type TransactionsHandler struct {
	sendMoneySvs SendMoneyServicer
}

func NewTransactionsHandler(sendMoneySvs SendMoneyServicer) *TransactionsHandler {
	return &TransactionsHandler{
		sendMoneySvs: sendMoneySvs,
	}
}

// SendMoneyParams сумма принимается строкой (или числом JSON) и никогда не проходит через float.
type SendMoneyParams struct {
	FromAccountID string      `binding:"required,uuid"          json:"fromAccountId"`
	ToAccountID   string      `binding:"required,uuid"          json:"toAccountId"`
	Amount        json.Number `binding:"required,money_amount"  json:"amount"`
	Currency      string      `binding:"required,iso4217"       json:"currency"`
	Reference     string      `binding:"required,max_bytes=255" json:"reference"`
}

type SendMoneyResponse struct {
	Status    service.TransferStatus `json:"status"`
	Reference string                 `json:"reference"`
}

// Send POST RouteGroup + SendMoneyRoute.
func (h *TransactionsHandler) Send(c *gin.Context) {
	var params SendMoneyParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.Error(bindError(bindErr)).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	args, err := params.toArgs()
	if err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	result, err := h.sendMoneySvs.SendMoney(ctx, args)
	if err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, SendMoneyResponse{
		Status:    result.Status,
		Reference: result.Reference,
	})
}

func (p SendMoneyParams) toArgs() (service.SendMoneyArgs, error) {
	amount, err := decimal.NewFromString(p.Amount.String())
	if err != nil {
		return service.SendMoneyArgs{}, fmt.Errorf("%w: amount: %s", domain.ErrValidation, err.Error())
	}
	return service.SendMoneyArgs{
		// формат uuid уже проверен валидатором.
		FromAccountID: uuid.MustParse(p.FromAccountID),
		ToAccountID:   uuid.MustParse(p.ToAccountID),
		Amount:        amount,
		Currency:      strings.ToUpper(p.Currency),
		Reference:     p.Reference,
	}, nil
}

// bindError приводит ошибку разбора запроса к ошибке валидации с читаемым описанием полей.
func bindError(err error) error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return fmt.Errorf("%w: malformed request body", domain.ErrValidation)
	}
	fields := make([]string, 0, len(valErrs))
	for _, fe := range valErrs {
		fields = append(fields, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(fields, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "money_amount":
		return fmt.Sprintf("%s must be a decimal number not less than %s with at most %d decimal places",
			fe.Field(), minTransferAmount, domain.MaxScale)
	case "iso4217":
		return fe.Field() + " must be an ISO-4217 currency code"
	case "uuid":
		return fe.Field() + " must be a UUID"
	default:
		return fe.Field() + " is invalid (" + fe.Tag() + ")"
	}
}
