package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

var minTransferAmount = decimal.RequireFromString("0.01")

// validateMaxBytes в отличии от тэга max который проверяет длину рун, - проверят длину байт в поле.
func validateMaxBytes(fl validator.FieldLevel) bool {
	maxBytes, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= maxBytes
}

// validateMoneyAmount проверяет, что поле содержит десятичное число не меньше minTransferAmount
// и не более чем с domain.MaxScale знаками после запятой.
func validateMoneyAmount(fl validator.FieldLevel) bool {
	amount, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return amount.GreaterThanOrEqual(minTransferAmount) && amount.Equal(amount.Truncate(domain.MaxScale))
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("validator registration: unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("max_bytes", validateMaxBytes); err != nil {
		return fmt.Errorf("validator registration: %s", err.Error())
	}
	if err := v.RegisterValidation("money_amount", validateMoneyAmount); err != nil {
		return fmt.Errorf("validator registration: %s", err.Error())
	}
	return nil
}
