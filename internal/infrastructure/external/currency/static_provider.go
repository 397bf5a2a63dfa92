package currency

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/port"
)

// ratePrecision is the number of decimal places kept on a cross rate
const ratePrecision = 6

// StaticProvider converts currencies from a fixed rate table.
// Every rate is expressed as units of the currency per one unit of Base.
type StaticProvider struct {
	base   string
	rates  map[string]decimal.Decimal
	logger *zap.Logger
}

// NewStaticProvider parses the rate table. The base currency always has rate 1.
func NewStaticProvider(base string, table map[string]string, logger *zap.Logger) (*StaticProvider, error) {
	base = normalize(base)
	if len(base) != 3 {
		return nil, fmt.Errorf("invalid base currency %q", base)
	}

	rates := make(map[string]decimal.Decimal, len(table)+1)
	for code, raw := range table {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}
		rates[normalize(code)] = rate
	}
	rates[base] = decimal.NewFromInt(1)

	logger.Info("Currency rate table loaded",
		zap.String("base", base),
		zap.Int("currencies", len(rates)))

	return &StaticProvider{base: base, rates: rates, logger: logger}, nil
}

// Rate returns how many units of `to` one unit of `from` buys
func (p *StaticProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = normalize(from), normalize(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	fromRate, ok := p.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", port.ErrUnsupportedCurrency, from)
	}
	toRate, ok := p.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", port.ErrUnsupportedCurrency, to)
	}

	return toRate.DivRound(fromRate, ratePrecision), nil
}

// Currencies returns the codes the table can convert
func (p *StaticProvider) Currencies() []string {
	codes := make([]string, 0, len(p.rates))
	for code := range p.rates {
		codes = append(codes, code)
	}
	return codes
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ port.RateProvider = (*StaticProvider)(nil)
