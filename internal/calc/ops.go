package calc

import (
	"math"
	"math/big"
)

// DomainError reports operands that are well formed but outside an
// operation's domain.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string { return e.Message }

// Add returns a + b.
func Add(a, b Number) (Number, error) {
	if a.IsInt() && b.IsInt() {
		return Number{kind: KindInt, i: new(big.Int).Add(a.int(), b.int())}, nil
	}
	return floatOp(a, b, func(x, y float64) float64 { return x + y })
}

// Subtract returns a - b.
func Subtract(a, b Number) (Number, error) {
	if a.IsInt() && b.IsInt() {
		return Number{kind: KindInt, i: new(big.Int).Sub(a.int(), b.int())}, nil
	}
	return floatOp(a, b, func(x, y float64) float64 { return x - y })
}

// Multiply returns a * b.
func Multiply(a, b Number) (Number, error) {
	if a.IsInt() && b.IsInt() {
		return Number{kind: KindInt, i: new(big.Int).Mul(a.int(), b.int())}, nil
	}
	return floatOp(a, b, func(x, y float64) float64 { return x * y })
}

// Divide returns a / b as a float. Integer operands are divided exactly
// and rounded once.
func Divide(a, b Number) (Number, error) {
	if b.IsZero() {
		return Number{}, &DomainError{Message: "division by zero"}
	}
	if a.IsInt() && b.IsInt() {
		q, _ := new(big.Rat).SetFrac(a.int(), b.int()).Float64()
		if math.IsInf(q, 0) {
			return Number{}, &DomainError{Message: "integer division result too large for a float"}
		}
		return Float(q), nil
	}
	return floatOp(a, b, func(x, y float64) float64 { return x / y })
}

// Average returns the arithmetic mean of values as a float.
func Average(values ...Number) (Number, error) {
	if len(values) == 0 {
		return Number{}, &DomainError{Message: "average requires at least one number"}
	}

	sum := Int(0)
	for _, v := range values {
		var err error
		if sum, err = Add(sum, v); err != nil {
			return Number{}, err
		}
	}
	return Divide(sum, Int(int64(len(values))))
}

func floatOp(a, b Number, fn func(x, y float64) float64) (Number, error) {
	x, err := a.Float64()
	if err != nil {
		return Number{}, err
	}
	y, err := b.Float64()
	if err != nil {
		return Number{}, err
	}
	return Float(fn(x, y)), nil
}
