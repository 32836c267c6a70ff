package sidfilter

import (
	"fmt"
	"math"
)

// Table is an immutable device-characteristic lookup table. It maps a
// quantized voltage (or squared-voltage) input in the 16-bit scale to a
// precomputed float32 output. Lookup is direct indexing with truncation,
// matching the fixed-point table design of the hardware model; keeping
// inputs inside [0, Size) is the caller's contract.
//
// Tables are built once per chip model and shared read-only. They must
// never be modified after construction.
type Table struct {
	values []float32
}

// NewTable wraps values as an immutable lookup table. The slice is owned
// by the table afterwards; callers must not retain or modify it.
func NewTable(values []float32) *Table {
	return &Table{values: values}
}

// Output returns the table value for input x. x is truncated to an index.
func (t *Table) Output(x float32) float32 {
	return t.values[int(x)]
}

// At returns the value at index i without float conversion.
func (t *Table) At(i int) float32 {
	return t.values[i]
}

// Size returns the number of entries.
func (t *Table) Size() int {
	return len(t.values)
}

// checkTableFinite reports a configuration error if any entry is NaN or
// infinite. Every table build runs this: the solver indexes tables
// blindly at audio rate and must never observe an undefined value.
func checkTableFinite(name string, values []float32) error {
	for i, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("sidfilter: %s table entry %d is not finite", name, i)
		}
	}
	return nil
}

// checkTableRange reports a configuration error if any entry leaves the
// representable 16-bit voltage scale. Used for the summer and mixer
// tables, whose outputs feed further table lookups directly.
func checkTableRange(name string, values []float32) error {
	for i, v := range values {
		if !(v > -0.5 && v < 65535.5) {
			return fmt.Errorf("sidfilter: %s table entry %d out of range: %g", name, i, v)
		}
	}
	return nil
}
