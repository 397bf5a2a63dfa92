package port

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expenseflow/internal/domain/entity"
)

// ErrUnsupportedCurrency is returned when no rate is known for a currency pair
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// RateProvider converts between ISO 4217 currencies
type RateProvider interface {
	// Rate returns how many units of `to` one unit of `from` buys
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Notification is a message for one user about one expense
type Notification struct {
	Recipient *entity.User
	ExpenseID int64
	Title     string
	Body      string
	Fields    map[string]string
}

// Notifier delivers notifications to users
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
