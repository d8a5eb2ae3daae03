package core

// convert.go turns raw CSV cells into typed values for binding.
//
// Unlike a general-purpose importer the input format is fixed: dates are
// YYYY-MM-DD only, numbers are plain decimals, and nothing is locale
// sensitive. Parse* functions fail with *FormatError; ToPg* functions
// return pgtype values with Valid=false for empty input so the column
// binds as NULL.

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted calendar format.
const DateLayout = "2006-01-02"

// MaxDecimalExponent bounds the base-10 exponent of a decimal cell. Larger
// magnitudes are rejected before anything expands them into digits.
const MaxDecimalExponent = 1000

// FormatError reports a cell that does not parse as the expected type.
type FormatError struct {
	Kind  string // "date", "integer" or "decimal"
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Kind, e.Value)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParseDate parses a YYYY-MM-DD cell.
// Empty input yields an invalid (NULL) date and no error.
func ParseDate(s string) (pgtype.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return pgtype.Date{}, &FormatError{Kind: "date", Value: s, Err: err}
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

// ParseInt parses a base-10 integer cell.
func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &FormatError{Kind: "integer", Value: s, Err: err}
	}
	return n, nil
}

// ParseDecimal parses a plain decimal cell. Exponents beyond
// MaxDecimalExponent in either direction are a *FormatError.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &FormatError{Kind: "decimal", Value: s, Err: err}
	}
	if exp := d.Exponent(); exp > MaxDecimalExponent || exp < -MaxDecimalExponent {
		return decimal.Decimal{}, &FormatError{
			Kind:  "decimal",
			Value: s,
			Err:   fmt.Errorf("exponent %d out of range", exp),
		}
	}
	return d, nil
}

// NormalizeActive upper-cases a Y/N flag, defaulting empty to "Y".
// ok is false when the result is anything but Y or N.
func NormalizeActive(s string) (flag string, ok bool) {
	flag = strings.ToUpper(strings.TrimSpace(s))
	if flag == "" {
		return "Y", true
	}
	return flag, flag == "Y" || flag == "N"
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgInt8 converts an identifier cell to pgtype.Int8.
// Empty input is NULL.
func ToPgInt8(s string) (pgtype.Int8, error) {
	if strings.TrimSpace(s) == "" {
		return pgtype.Int8{}, nil
	}
	n, err := ParseInt(s)
	if err != nil {
		return pgtype.Int8{}, err
	}
	return pgtype.Int8{Int64: n, Valid: true}, nil
}

// ToPgNumeric converts a decimal cell to pgtype.Numeric.
// Empty input is NULL.
func ToPgNumeric(s string) (pgtype.Numeric, error) {
	if strings.TrimSpace(s) == "" {
		return pgtype.Numeric{}, nil
	}
	d, err := ParseDecimal(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}, nil
}

// bindValues coerces a validated row into insert parameters, one per field
// in definition order.
func bindValues(def TableDefinition, row Row) ([]any, error) {
	values := make([]any, len(def.Fields))
	for i, f := range def.Fields {
		raw := row[f.Name]
		var err error
		switch f.Type {
		case FieldID:
			values[i], err = ToPgInt8(raw)
		case FieldDate:
			values[i], err = ParseDate(raw)
		case FieldDecimal:
			values[i], err = ToPgNumeric(raw)
		case FieldFlag:
			flag, _ := NormalizeActive(raw)
			values[i] = flag
		default:
			values[i] = ToPgText(raw)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return values, nil
}

// formatBind renders bound values as "col=value" pairs for logs and audit
// details. NULLs print as NULL.
func formatBind(def TableDefinition, values []any) string {
	if len(values) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(values))
	for i, v := range values {
		name := fmt.Sprintf("$%d", i+1)
		if i < len(def.Fields) {
			name = def.Fields[i].Name
		}
		parts = append(parts, name+"="+formatValue(v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v any) string {
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		v = dv
	}
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format(DateLayout)
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
