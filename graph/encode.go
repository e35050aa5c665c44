package graph

import (
	"strconv"
	"strings"
)

// Canonical entity type tags. Declared types are normalized against these
// case-insensitively; anything else becomes TypeUnknown.
const (
	TypePayer      = "Payer"
	TypeProvider   = "Provider"
	TypeVendor     = "Vendor"
	TypeIntegrated = "Integrated"
	TypeUnknown    = "Unknown"
)

// Node sizes derived from revenue are clamped into [SizeMin, SizeMax] so one
// extreme value cannot dwarf or vanish relative to the rest. Nodes without a
// usable revenue string get SizeDefault.
const (
	SizeDefault = 5.0
	SizeMin     = 5.0
	SizeMax     = 60.0
)

// Revenue magnitude multipliers. Strictly decreasing across tiers so a "10B"
// company renders visibly larger than a "10M" one.
const (
	multBillions = 1.0
	multMillions = 0.1
	multPlain    = 0.02
)

// Fill colors per canonical type. Unknown is translucent so unclassified
// organizations read as "no data" rather than as a fifth category.
const (
	colorPayer      = "#3b82f6"
	colorProvider   = "#10b981"
	colorVendor     = "#f59e0b"
	colorIntegrated = "#8b5cf6"
	colorUnknown    = "rgba(148, 163, 184, 0.55)"
)

// ClassifyType maps a declared entity type to its canonical tag. Matching is
// case-insensitive and ignores surrounding whitespace; unrecognized or empty
// values map to TypeUnknown.
func ClassifyType(declared string) string {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "payer":
		return TypePayer
	case "provider":
		return TypeProvider
	case "vendor":
		return TypeVendor
	case "integrated":
		return TypeIntegrated
	default:
		return TypeUnknown
	}
}

// ColorFor returns the fill color for a type. It accepts raw declared types
// as well as canonical tags; anything that does not classify gets the
// unknown color.
func ColorFor(typ string) string {
	switch ClassifyType(typ) {
	case TypePayer:
		return colorPayer
	case TypeProvider:
		return colorProvider
	case TypeVendor:
		return colorVendor
	case TypeIntegrated:
		return colorIntegrated
	default:
		return colorUnknown
	}
}

// SizeFor derives a node size from a revenue string such as "324.2B" or
// "80M". The leading decimal token picks the value; a "B" in the remainder
// selects the billions tier, else an "M" the millions tier, else the small
// unsuffixed tier. Strings without a leading decimal token, including the
// empty string, yield SizeDefault.
func SizeFor(revenue string) float64 {
	value, rest, ok := leadingNumber(strings.TrimSpace(revenue))
	if !ok {
		return SizeDefault
	}

	mult := multPlain
	if strings.Contains(rest, "B") {
		mult = multBillions
	} else if strings.Contains(rest, "M") {
		mult = multMillions
	}

	size := value * mult
	if size < SizeMin {
		size = SizeMin
	}
	if size > SizeMax {
		size = SizeMax
	}
	return size
}

// leadingNumber parses the decimal numeric token at the start of s. It
// returns the parsed value, the remainder after the token, and whether a
// token was present.
func leadingNumber(s string) (float64, string, bool) {
	i := 0
	dot := false
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			i++
			continue
		}
		if c == '.' && !dot {
			dot = true
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, s, false
	}
	value, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, s, false
	}
	return value, s[i:], true
}
