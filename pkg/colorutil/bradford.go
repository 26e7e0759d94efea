package colorutil

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// bradfordCone is the Bradford cone response matrix.
var bradfordCone = mat.NewDense(3, 3, []float64{
	0.8951, 0.2664, -0.1614,
	-0.7502, 1.7135, 0.0367,
	0.0389, -0.0685, 1.0296,
})

// Bradford returns the chromatic adaptation matrix mapping tristimulus
// values under the src white to the dst white: M^-1 * diag(M*dst / M*src) * M.
func Bradford(src, dst [3]float64) (Matrix3, error) {
	var inv mat.Dense
	if err := inv.Inverse(bradfordCone); err != nil {
		return Matrix3{}, fmt.Errorf("bradford matrix not invertible: %w", err)
	}

	var coneSrc, coneDst mat.VecDense
	coneSrc.MulVec(bradfordCone, mat.NewVecDense(3, src[:]))
	coneDst.MulVec(bradfordCone, mat.NewVecDense(3, dst[:]))

	gain := make([]float64, 3)
	for i := range gain {
		s := coneSrc.AtVec(i)
		if s == 0 {
			return Matrix3{}, fmt.Errorf("source white has zero cone response")
		}
		gain[i] = coneDst.AtVec(i) / s
	}

	var scaled, adapt mat.Dense
	scaled.Mul(mat.NewDiagDense(3, gain), bradfordCone)
	adapt.Mul(&inv, &scaled)

	var out Matrix3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = adapt.At(r, c)
		}
	}
	return out, nil
}

func mustBradford(src, dst [3]float64) Matrix3 {
	m, err := Bradford(src, dst)
	if err != nil {
		panic(err)
	}
	return m
}
