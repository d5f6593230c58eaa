// Package compat holds the compatibility matrix: the symmetric table of
// per-tick edge-formation probabilities between every pair of agents.
//
// Invariants maintained by every exported operation:
//   - At(i, j) == At(j, i)
//   - 0 <= At(i, j) <= 1
//   - At(i, i) == 0
package compat

import (
	"fmt"
	"math"

	"github.com/Swabber-io/syscomp/internal/models"
)

// Matrix is a dense N×N symmetric probability matrix.
type Matrix struct {
	n    int
	vals []float64
}

// NewZero returns an N×N all-zero matrix. N must be at least 1.
func NewZero(n int) (*Matrix, error) {
	if n < 1 {
		return nil, &models.ValidationError{Field: "population size", Value: n, Reason: "must be at least 1"}
	}
	return &Matrix{n: n, vals: make([]float64, n*n)}, nil
}

// FromValues builds a matrix from explicit rows. The rows must form a
// square, symmetric matrix with values in [0, 1] and a zero diagonal.
func FromValues(rows [][]float64) (*Matrix, error) {
	m, err := NewZero(len(rows))
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != m.n {
			return nil, &models.ValidationError{
				Field:  fmt.Sprintf("row %d", i),
				Value:  len(row),
				Reason: fmt.Sprintf("expected %d columns", m.n),
			}
		}
		copy(m.vals[i*m.n:(i+1)*m.n], row)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Size returns N.
func (m *Matrix) Size() int { return m.n }

// At returns the probability for the pair (i, j).
func (m *Matrix) At(i, j int) float64 { return m.vals[i*m.n+j] }

// Set writes p to both (i, j) and (j, i).
func (m *Matrix) Set(i, j int, p float64) error {
	if i == j {
		if p != 0 {
			return &models.ValidationError{Field: fmt.Sprintf("matrix[%d][%d]", i, j), Value: p, Reason: "diagonal must be 0"}
		}
		return nil
	}
	if err := models.CheckProbability(fmt.Sprintf("matrix[%d][%d]", i, j), p); err != nil {
		return err
	}
	m.set(i, j, p)
	return nil
}

func (m *Matrix) set(i, j int, p float64) {
	m.vals[i*m.n+j] = p
	m.vals[j*m.n+i] = p
}

// Zero clears the pair (i, j) in both directions.
func (m *Matrix) Zero(i, j int) { m.set(i, j, 0) }

// Restore puts back a probability previously read from this matrix, for a
// pair whose edge has been removed.
func (m *Matrix) Restore(i, j int, p float64) {
	if i == j {
		return
	}
	m.set(i, j, p)
}

// RowSum returns the sum of row i.
func (m *Matrix) RowSum(i int) float64 {
	sum := 0.0
	for _, v := range m.vals[i*m.n : (i+1)*m.n] {
		sum += v
	}
	return sum
}

// ColSum returns the sum of column j.
func (m *Matrix) ColSum(j int) float64 {
	sum := 0.0
	for i := 0; i < m.n; i++ {
		sum += m.vals[i*m.n+j]
	}
	return sum
}

// Recalculate normalizes the matrix in place. For each index i in order, every
// entry of row i and column i is divided by rowSum(i)+colSum(i). Each entry is
// at most half of that denominator, so values stay within [0, 0.5].
//
// A zero denominator means row i and column i are already all zero; the
// division is skipped and they stay zero. NaN is never written.
func (m *Matrix) Recalculate() {
	for i := 0; i < m.n; i++ {
		denom := m.RowSum(i) + m.ColSum(i)
		if denom == 0 {
			continue
		}
		for j := 0; j < m.n; j++ {
			if j == i {
				continue
			}
			m.set(i, j, m.At(i, j)/denom)
		}
	}
}

// Validate checks every matrix invariant and reports the first violation.
func (m *Matrix) Validate() error {
	for i := 0; i < m.n; i++ {
		if d := m.At(i, i); d != 0 {
			return &models.ValidationError{Field: fmt.Sprintf("matrix[%d][%d]", i, i), Value: d, Reason: "diagonal must be 0"}
		}
		for j := i + 1; j < m.n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if a != b {
				return &models.ValidationError{
					Field:  fmt.Sprintf("matrix[%d][%d]", i, j),
					Value:  a,
					Reason: fmt.Sprintf("asymmetric: mirror entry is %v", b),
				}
			}
			if err := models.CheckProbability(fmt.Sprintf("matrix[%d][%d]", i, j), a); err != nil {
				return err
			}
		}
	}
	return nil
}

// Values returns a copy of the matrix as rows.
func (m *Matrix) Values() [][]float64 {
	rows := make([][]float64, m.n)
	for i := range rows {
		rows[i] = make([]float64, m.n)
		copy(rows[i], m.vals[i*m.n:(i+1)*m.n])
	}
	return rows
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{n: m.n, vals: make([]float64, len(m.vals))}
	copy(c.vals, m.vals)
	return c
}

// Mass returns the total probability mass of the strictly upper triangle,
// i.e. the expected number of new edges per tick when no edge exists.
func (m *Matrix) Mass() float64 {
	sum := 0.0
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			sum += m.At(i, j)
		}
	}
	return sum
}

// MaxEntry returns the largest off-diagonal entry.
func (m *Matrix) MaxEntry() float64 {
	max := math.Inf(-1)
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if v := m.At(i, j); v > max {
				max = v
			}
		}
	}
	if math.IsInf(max, -1) {
		return 0
	}
	return max
}
