package gates

import (
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

// UnitaryTolerance is the element-wise tolerance used when checking U·U† = I.
const UnitaryTolerance = 1e-9

// Matrix is an immutable square complex matrix stored row-major.
type Matrix struct {
	dim  int
	data []complex128
}

// NewMatrix builds a dim×dim matrix from row-major values.
// It panics if len(values) != dim*dim; matrices are only built from literals
// and parameter formulas inside this package.
func NewMatrix(dim int, values ...complex128) Matrix {
	if dim <= 0 || len(values) != dim*dim {
		panic(fmt.Sprintf("gates: %d values for a %dx%d matrix", len(values), dim, dim))
	}
	data := make([]complex128, len(values))
	copy(data, values)
	return Matrix{dim: dim, data: data}
}

// Identity returns the dim×dim identity matrix.
func Identity(dim int) Matrix {
	data := make([]complex128, dim*dim)
	for i := range dim {
		data[i*dim+i] = 1
	}
	return Matrix{dim: dim, data: data}
}

// Dim returns the number of rows (and columns).
func (m Matrix) Dim() int { return m.dim }

// At returns the element at row i, column j.
func (m Matrix) At(i, j int) complex128 { return m.data[i*m.dim+j] }

// Data returns a copy of the row-major elements.
func (m Matrix) Data() []complex128 {
	out := make([]complex128, len(m.data))
	copy(out, m.data)
	return out
}

// Product returns m·other.
func (m Matrix) Product(other Matrix) Matrix {
	return gemm(m, other, blas.NoTrans)
}

// Adjoint returns the conjugate transpose of m.
func (m Matrix) Adjoint() Matrix {
	out := make([]complex128, len(m.data))
	for i := range m.dim {
		for j := range m.dim {
			out[j*m.dim+i] = cmplx.Conj(m.data[i*m.dim+j])
		}
	}
	return Matrix{dim: m.dim, data: out}
}

// ApproxEqual reports whether every element of m is within tol of other.
func (m Matrix) ApproxEqual(other Matrix, tol float64) bool {
	if m.dim != other.dim {
		return false
	}
	for i, v := range m.data {
		if cmplx.Abs(v-other.data[i]) > tol {
			return false
		}
	}
	return true
}

// IsUnitary reports whether m·m† equals the identity within tol.
func (m Matrix) IsUnitary(tol float64) bool {
	if m.dim == 0 {
		return false
	}
	return gemm(m, m, blas.ConjTrans).ApproxEqual(Identity(m.dim), tol)
}

func (m Matrix) String() string {
	var sb strings.Builder
	for i := range m.dim {
		sb.WriteString("[")
		for j := range m.dim {
			if j > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%.4g", m.At(i, j))
		}
		sb.WriteString("]")
		if i < m.dim-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// gemm computes a·op(b) where op is selected by tb.
func gemm(a, b Matrix, tb blas.Transpose) Matrix {
	n := a.dim
	out := make([]complex128, n*n)
	cblas128.Gemm(blas.NoTrans, tb, 1,
		cblas128.General{Rows: n, Cols: n, Stride: n, Data: a.data},
		cblas128.General{Rows: n, Cols: n, Stride: n, Data: b.data},
		0,
		cblas128.General{Rows: n, Cols: n, Stride: n, Data: out},
	)
	return Matrix{dim: n, data: out}
}
