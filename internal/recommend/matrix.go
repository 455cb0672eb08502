package recommend

import (
	"fmt"
	"math"

	"github.com/iliyamo/cinema-booking/internal/pricing"
)

// Matrix is a dense row-major matrix of float64.  In the recommender
// rows are users and columns are movies, both in ascending id order.
// No operation broadcasts implicitly: every elementwise and reduction
// step walks rows then columns in index order, so repeated runs over
// the same input produce bit-identical results.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix returns a zero-filled rows×cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("recommend: invalid matrix shape %dx%d", rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

func (m *Matrix) At(i, j int) float64 { return m.data[i*m.cols+j] }

func (m *Matrix) Set(i, j int, v float64) { m.data[i*m.cols+j] = v }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, m.cols)
	copy(out, m.data[i*m.cols:(i+1)*m.cols])
	return out
}

// NonZeroColumnMeans returns, for each column, the mean of its non-zero
// entries rounded to places decimals.  A column with no non-zero entry
// has mean 0.
func (m *Matrix) NonZeroColumnMeans(places int) []float64 {
	means := make([]float64, m.cols)
	for j := 0; j < m.cols; j++ {
		sum, n := 0.0, 0
		for i := 0; i < m.rows; i++ {
			if v := m.At(i, j); v != 0 {
				sum += v
				n++
			}
		}
		if n > 0 {
			means[j] = pricing.Round(sum/float64(n), places)
		}
	}
	return means
}

// FillZeros returns a copy of m where each zero entry is replaced by the
// value of fill for its column.
func (m *Matrix) FillZeros(fill []float64) *Matrix {
	out := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			v := m.At(i, j)
			if v == 0 {
				v = fill[j]
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// Mean returns the mean of all entries, or 0 for an empty matrix.
func (m *Matrix) Mean() float64 {
	if len(m.data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range m.data {
		sum += v
	}
	return sum / float64(len(m.data))
}

// SubScalar returns m − x.
func (m *Matrix) SubScalar(x float64) *Matrix {
	out := NewMatrix(m.rows, m.cols)
	for i, v := range m.data {
		out.data[i] = v - x
	}
	return out
}

// Gram returns mᵗ·m, a cols×cols matrix.
func (m *Matrix) Gram() *Matrix {
	out := NewMatrix(m.cols, m.cols)
	for a := 0; a < m.cols; a++ {
		for b := 0; b < m.cols; b++ {
			sum := 0.0
			for i := 0; i < m.rows; i++ {
				sum += m.At(i, a) * m.At(i, b)
			}
			out.Set(a, b, sum)
		}
	}
	return out
}

// ColumnNorms returns the L2 norm of every column.
func (m *Matrix) ColumnNorms() []float64 {
	norms := make([]float64, m.cols)
	for j := 0; j < m.cols; j++ {
		sum := 0.0
		for i := 0; i < m.rows; i++ {
			v := m.At(i, j)
			sum += v * v
		}
		norms[j] = math.Sqrt(sum)
	}
	return norms
}

// Cosine turns a Gram matrix into cosine similarities by dividing each
// entry by the product of the two column norms, then rounds to places
// decimals.  Entries whose norm product is zero are 0.
func (m *Matrix) Cosine(norms []float64, places int) *Matrix {
	out := NewMatrix(m.rows, m.cols)
	for a := 0; a < m.rows; a++ {
		for b := 0; b < m.cols; b++ {
			den := norms[a] * norms[b]
			if den == 0 {
				continue
			}
			out.Set(a, b, pricing.Round(m.At(a, b)/den, places))
		}
	}
	return out
}
