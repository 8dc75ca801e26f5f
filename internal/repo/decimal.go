package repo

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Numeric columns travel as text between Postgres and the decimal type so no
// float conversion ever touches a money value.

func parseDec(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("repo: parse numeric %q: %w", raw, err)
	}
	return d, nil
}

func parseDecPtr(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := parseDec(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decArg(d decimal.Decimal) string {
	return d.String()
}

func decPtrArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
