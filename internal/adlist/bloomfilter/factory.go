package bloom

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

// Factory constructs Bloom filters sized for a dataset capacity and FP rate.
type Factory interface {
	New(capacity uint64, fpRate float64) Filter
}

// factory implements Factory using the sizing formulas in sizer.go.
type factory struct{}

// NewFactory returns a Factory that sizes filters from capacity and FP rate.
func NewFactory() Factory { return factory{} }

// New constructs a new Filter instance sized for the given dataset capacity
// and target false-positive rate.
func (factory) New(capacity uint64, fpRate float64) Filter {
	m, k := Size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}
