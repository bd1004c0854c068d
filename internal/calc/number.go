// Package calc implements run-calc's arithmetic core: the numeric value
// model, the five operations, the operation registry and the dispatcher
// that turns an argument list into a tagged result.
package calc

import (
	"errors"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes the two Number variants.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
)

// Number is either an exact integer or a float64.
// The zero value is the integer 0.
type Number struct {
	kind Kind
	i    *big.Int
	f    float64
}

// Int returns an integer Number.
func Int(v int64) Number {
	return Number{kind: KindInt, i: big.NewInt(v)}
}

// BigInt returns an integer Number holding a copy of v.
func BigInt(v *big.Int) Number {
	return Number{kind: KindInt, i: new(big.Int).Set(v)}
}

// Float returns a float Number.
func Float(v float64) Number {
	return Number{kind: KindFloat, f: v}
}

// Kind reports which variant n holds.
func (n Number) Kind() Kind { return n.kind }

// IsInt reports whether n is the integer variant.
func (n Number) IsInt() bool { return n.kind == KindInt }

// IsZero reports whether n equals zero (0, 0.0 and -0.0 alike).
func (n Number) IsZero() bool {
	if n.kind == KindInt {
		return n.int().Sign() == 0
	}
	return n.f == 0
}

func (n Number) int() *big.Int {
	if n.i == nil {
		return new(big.Int)
	}
	return n.i
}

// Float64 converts n to a float64. Integers too large for a float64
// fail with a DomainError.
func (n Number) Float64() (float64, error) {
	if n.kind == KindFloat {
		return n.f, nil
	}
	f, _ := new(big.Float).SetInt(n.int()).Float64()
	if math.IsInf(f, 0) {
		return 0, &DomainError{Message: "int too large to convert to float"}
	}
	return f, nil
}

// String renders n in its default text form: integers without a decimal
// point, floats via FormatFloat.
func (n Number) String() string {
	if n.kind == KindInt {
		return n.int().String()
	}
	return FormatFloat(n.f)
}

// Equal reports whether a and b hold the same variant and value.
func (n Number) Equal(o Number) bool {
	if n.kind != o.kind {
		return false
	}
	if n.kind == KindInt {
		return n.int().Cmp(o.int()) == 0
	}
	return n.f == o.f || (math.IsNaN(n.f) && math.IsNaN(o.f))
}

// ParseError reports a token that is not a number.
type ParseError struct {
	Token string
}

func (e *ParseError) Error() string {
	return "num1 and num2 must be numbers"
}

var (
	intToken   = regexp.MustCompile(`^[+-]?[0-9](_?[0-9])*$`)
	floatToken = regexp.MustCompile(`^[+-]?(([0-9](_?[0-9])*)?\.[0-9](_?[0-9])*|[0-9](_?[0-9])*\.?)([eE][+-]?[0-9](_?[0-9])*)?$`)
)

// ParseNumber converts a token into a Number. Tokens containing '.', 'e'
// or 'E' are parsed as floats, everything else as integers.
func ParseNumber(token string) (Number, error) {
	s := strings.TrimSpace(token)
	if strings.Contains(token, ".") || strings.Contains(strings.ToLower(token), "e") {
		if !floatToken.MatchString(s) {
			return Number{}, &ParseError{Token: token}
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Number{}, &ParseError{Token: token}
		}
		return Float(f), nil
	}

	if !intToken.MatchString(s) {
		return Number{}, &ParseError{Token: token}
	}
	i, ok := new(big.Int).SetString(strings.ReplaceAll(s, "_", ""), 10)
	if !ok {
		return Number{}, &ParseError{Token: token}
	}
	return Number{kind: KindInt, i: i}, nil
}

// FormatFloat renders f as its shortest round-trip decimal. Integral
// values keep a trailing ".0"; exponents below -4 or from 16 up switch to
// scientific notation with a signed, at least two-digit exponent.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	// d.ddddde±XX
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	sign := ""
	if sci[0] == '-' {
		sign = "-"
		sci = sci[1:]
	}
	mant, expStr, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expStr)
	digits := strings.Replace(mant, ".", "", 1)

	if exp < -4 || exp >= 16 {
		m := digits[:1]
		if len(digits) > 1 {
			m += "." + digits[1:]
		}
		esign := "+"
		if exp < 0 {
			esign = "-"
			exp = -exp
		}
		return sign + m + "e" + esign + padExponent(exp)
	}

	var out string
	switch {
	case exp < 0:
		out = "0." + strings.Repeat("0", -exp-1) + digits
	case exp+1 >= len(digits):
		out = digits + strings.Repeat("0", exp+1-len(digits)) + ".0"
	default:
		out = digits[:exp+1] + "." + digits[exp+1:]
	}
	return sign + out
}

func padExponent(exp int) string {
	s := strconv.Itoa(exp)
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}
