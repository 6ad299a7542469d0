package domain

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 25
)

// Page is an offset pagination window.
type Page struct {
	Number int
	Limit  int
}

// NewPage applies the defaults for absent or non-positive values.
func NewPage(number, limit int) Page {
	if number <= 0 {
		number = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Page{Number: number, Limit: limit}
}

// Clamp caps the limit. Callers apply it, stores do not.
func (p Page) Clamp(max int) Page {
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	return p
}

// InRange reports whether the page's offset fits in an int.
func (p Page) InRange() bool {
	if p.Number <= 1 || p.Limit <= 0 {
		return true
	}
	return p.Number-1 <= math.MaxInt/p.Limit
}

// Offset saturates at math.MaxInt for pages past InRange.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	if !p.InRange() {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}
