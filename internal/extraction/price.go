package extraction

import (
	"math"
	"strconv"
	"strings"
)

// confusables repairs digits that OCR commonly misreads as letters. The
// repair runs on the raw token, before symbol stripping, so that a misread
// digit survives the strip.
var confusables = strings.NewReplacer(
	"I", "1",
	"l", "1",
	"O", "0",
	"o", "0",
)

// NormalizePrice converts a raw price token from model output into a
// canonical value rounded to 2 decimal places. Receipts worldwide mix
// "." and "," as decimal vs. thousands separators, and OCR frequently
// misreads price digits as letters, so string input goes through a
// cleanup pipeline: letter-to-digit repair, symbol stripping, separator
// disambiguation and fractional-length repair. Unparsable input yields 0;
// callers drop non-positive prices downstream.
func NormalizePrice(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return round2(v)
	case int:
		return round2(float64(v))
	case string:
		return normalizeString(v)
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalizeString(s string) float64 {
	s = confusables.Replace(s)

	// Keep digits, separators and the sign only.
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" {
		return 0
	}

	// The separator appearing last is the decimal point; every other
	// separator occurrence is thousands grouping.
	if sep := decimalSeparator(s); sep != 0 {
		cut := strings.LastIndexByte(s, sep)
		intPart := stripSeparators(s[:cut])
		frac := stripSeparators(s[cut+1:])

		// A fractional part longer than 2 digits is an OCR artifact that
		// merged neighboring digits into the decimals: the final 2 digits
		// are the true decimals, the rest belongs to the integer part.
		if len(frac) > 2 {
			intPart += frac[:len(frac)-2]
			frac = frac[len(frac)-2:]
		}
		s = intPart + "." + frac
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return round2(f)
}

// decimalSeparator picks the separator acting as the decimal point, or 0
// when the string has neither separator.
func decimalSeparator(s string) byte {
	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')
	switch {
	case lastComma < 0 && lastDot < 0:
		return 0
	case lastComma > lastDot:
		return ','
	default:
		return '.'
	}
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	return strings.ReplaceAll(s, ".", "")
}
