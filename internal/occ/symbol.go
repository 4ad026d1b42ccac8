// Package occ encodes and decodes OCC-format option symbols
// ({UNDERLYING}{YYMMDD}{C|P}{STRIKE*1000 zero-padded 8 digits}), the wire
// format the brokerage Adapter (C-adapter) expects for order submission.
package occ

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"options-controller/internal/domain"
)

// Encode builds an OCC symbol from contract details.
func Encode(underlying string, expiration time.Time, optionType string, strike float64) (string, error) {
	if underlying == "" {
		return "", fmt.Errorf("occ: underlying is required")
	}

	var letter string
	switch optionType {
	case domain.DirectionCall:
		letter = "C"
	case domain.DirectionPut:
		letter = "P"
	default:
		return "", fmt.Errorf("occ: unknown option type %q", optionType)
	}

	strikeInt := int64(strike*1000 + 0.5)
	if strikeInt < 0 {
		return "", fmt.Errorf("occ: negative strike %v", strike)
	}

	return fmt.Sprintf("%s%s%s%08d", strings.ToUpper(underlying), expiration.Format("060102"), letter, strikeInt), nil
}

// Decoded is a parsed OCC symbol.
type Decoded struct {
	Underlying string
	Expiration time.Time
	OptionType string
	Strike     float64
}

// Decode parses an OCC symbol back into its contract details.
func Decode(symbol string) (Decoded, error) {
	if len(symbol) < 15 {
		return Decoded{}, fmt.Errorf("occ: symbol %q too short", symbol)
	}

	// The strike+type+date suffix is a fixed 15 characters; everything
	// ahead of it is the underlying, which itself has variable length.
	suffix := symbol[len(symbol)-15:]
	underlying := symbol[:len(symbol)-15]
	if underlying == "" {
		return Decoded{}, fmt.Errorf("occ: symbol %q missing underlying", symbol)
	}

	dateStr := suffix[:6]
	letter := suffix[6:7]
	strikeStr := suffix[7:]

	expiration, err := time.Parse("060102", dateStr)
	if err != nil {
		return Decoded{}, fmt.Errorf("occ: invalid expiration in %q: %w", symbol, err)
	}

	var optionType string
	switch letter {
	case "C":
		optionType = domain.DirectionCall
	case "P":
		optionType = domain.DirectionPut
	default:
		return Decoded{}, fmt.Errorf("occ: invalid option type letter %q in %q", letter, symbol)
	}

	strikeInt, err := strconv.ParseInt(strikeStr, 10, 64)
	if err != nil {
		return Decoded{}, fmt.Errorf("occ: invalid strike in %q: %w", symbol, err)
	}

	return Decoded{
		Underlying: underlying,
		Expiration: expiration,
		OptionType: optionType,
		Strike:     float64(strikeInt) / 1000,
	}, nil
}
