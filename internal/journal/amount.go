package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrAmountFormat = errors.New("invalid amount format")

// Amount is one posting amount: an exact decimal quantity with an optional
// commodity, an optional lot price in braces and an optional settlement date
// in brackets. A price never carries its own price or date.
type Amount struct {
	Quantity  decimal.Decimal
	Commodity string
	Price     *Amount
	Date      *time.Time
}

// ParseAmount parses the textual amount grammar of the dump:
//
//	-1,020.48 GEL
//	194.21240000 USDT {9.5256 SEK} [2025/09/17]
//
// Thousands separators are stripped; the quantity keeps every significant
// digit.
func ParseAmount(s string) (Amount, error) {
	var amount Amount

	priceStart := strings.IndexByte(s, '{')
	if priceStart >= 0 {
		priceEnd := strings.IndexByte(s, '}')
		if priceEnd < 0 {
			return Amount{}, ErrAmountFormat
		}
		quantity, commodity, err := parseQuantity(s[priceStart+1 : priceEnd])
		if err != nil {
			return Amount{}, fmt.Errorf("price: %w", err)
		}
		amount.Price = &Amount{Quantity: quantity, Commodity: commodity}
	}

	dateStart := strings.IndexByte(s, '[')
	if dateStart >= 0 {
		dateEnd := strings.IndexByte(s, ']')
		if dateEnd < 0 {
			return Amount{}, ErrAmountFormat
		}
		date, err := time.Parse("2006/01/02", strings.TrimSpace(s[dateStart+1:dateEnd]))
		if err != nil {
			return Amount{}, fmt.Errorf("settlement date: %w", err)
		}
		amount.Date = &date
	}

	base := s
	if priceStart >= 0 {
		base = s[:priceStart]
	} else if dateStart >= 0 {
		base = s[:dateStart]
	}
	quantity, commodity, err := parseQuantity(base)
	if err != nil {
		return Amount{}, err
	}
	amount.Quantity = quantity
	amount.Commodity = commodity
	return amount, nil
}

// parseQuantity splits "<decimal> <commodity...>". The commodity may span
// several words and may be quoted.
func parseQuantity(s string) (decimal.Decimal, string, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return decimal.Decimal{}, "", ErrAmountFormat
	}
	token := strings.ReplaceAll(fields[0], ",", "")
	quantity, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, "", fmt.Errorf("invalid decimal %q: %w", fields[0], err)
	}
	commodity := strings.Trim(strings.Join(fields[1:], " "), `"`)
	return quantity, commodity, nil
}

func (a Amount) String() string {
	var b strings.Builder
	b.WriteString(a.Quantity.String())
	if a.Commodity != "" {
		b.WriteByte(' ')
		b.WriteString(a.Commodity)
	}
	if a.Price != nil {
		fmt.Fprintf(&b, " {%s}", a.Price)
	}
	if a.Date != nil {
		fmt.Fprintf(&b, " [%s]", a.Date.Format("2006/01/02"))
	}
	return b.String()
}
