package tpc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Circle is the result of an algebraic least-squares circle fit (C6).
type Circle struct {
	X0, Y0   float64
	Radius   float64
	Residual float64
}

// FitCircle fits a 2-D circle through the given (x, y) points using the
// Kåsa algebraic least-squares method: minimise
//
//	sum_i (xi^2 + yi^2 - 2*xc*xi - 2*yc*yi - c)^2
//
// over (xc, yc, c), where c = r^2 - xc^2 - yc^2, via the linear normal
// equations solved by Cholesky factorization. Returns ErrDegenerateCircleFit
// if the points are collinear (the normal-equation matrix is singular).
func FitCircle(xs, ys []float64) (Circle, error) {
	n := len(xs)
	if n < 3 || len(ys) != n {
		return Circle{}, fmt.Errorf("tpc: circle fit needs >= 3 points, got %d", n)
	}

	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a.SetRow(i, []float64{2 * xs[i], 2 * ys[i], 1})
		b.SetVec(i, xs[i]*xs[i]+ys[i]*ys[i])
	}

	var normalMatrix mat.Dense
	normalMatrix.Mul(a.T(), a)
	var normalRHS mat.VecDense
	normalRHS.MulVec(a.T(), b)

	symNormal := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			symNormal.SetSym(i, j, normalMatrix.At(i, j))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(symNormal); !ok {
		return Circle{}, ErrDegenerateCircleFit
	}

	var p mat.VecDense
	if err := chol.SolveVecTo(&p, &normalRHS); err != nil {
		return Circle{}, fmt.Errorf("%w: %v", ErrDegenerateCircleFit, err)
	}

	xc, yc, c := p.AtVec(0), p.AtVec(1), p.AtVec(2)
	r2 := c + xc*xc + yc*yc
	if r2 < 0 {
		return Circle{}, ErrDegenerateCircleFit
	}
	radius := math.Sqrt(r2)

	var residual float64
	for i := 0; i < n; i++ {
		dx := xs[i] - xc
		dy := ys[i] - yc
		d := math.Hypot(dx, dy) - radius
		residual += d * d
	}

	return Circle{X0: xc, Y0: yc, Radius: radius, Residual: residual}, nil
}

// GenerateCirclePoints returns n points evenly spaced around the given
// circle, used by the estimator to re-derive the vertex from a fitted arc.
func GenerateCirclePoints(x0, y0, radius float64, n int) [][2]float64 {
	pts := make([][2]float64, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = [2]float64{x0 + radius*math.Cos(theta), y0 + radius*math.Sin(theta)}
	}
	return pts
}
