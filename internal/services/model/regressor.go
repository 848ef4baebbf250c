package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Regressor is trainable on (features, label) pairs and predicts a scalar.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
}

var errEmptyTrainingSet = errors.New("empty training set")

// Ridge is an L2-regularized linear regression on standardized features.
type Ridge struct {
	Lambda float64

	means     []float64
	scales    []float64
	coef      []float64
	intercept float64
	fitted    bool
}

// NewRidge returns an unfitted ridge regressor with penalty lambda.
func NewRidge(lambda float64) *Ridge {
	if lambda <= 0 {
		lambda = 1
	}
	return &Ridge{Lambda: lambda}
}

func (r *Ridge) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || len(y) != n {
		return errEmptyTrainingSet
	}
	p := len(X[0])

	r.means = make([]float64, p)
	r.scales = make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			col[i] = X[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		r.means[j], r.scales[j] = mean, std
	}

	xs := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		if len(X[i]) != p {
			return fmt.Errorf("row %d has %d features, want %d", i, len(X[i]), p)
		}
		for j := 0; j < p; j++ {
			xs.Set(i, j, (X[i][j]-r.means[j])/r.scales[j])
		}
	}

	r.intercept = stat.Mean(y, nil)
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-r.intercept)
	}

	// (XᵀX + λI) w = Xᵀy
	var gram mat.SymDense
	gram.SymOuterK(1, xs.T())
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Lambda)
	}
	rhs := mat.NewVecDense(p, nil)
	rhs.MulVec(xs.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return errors.New("ridge: normal equations not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, rhs); err != nil {
		return fmt.Errorf("ridge: solve: %w", err)
	}
	r.coef = make([]float64, p)
	for j := range r.coef {
		r.coef[j] = w.AtVec(j)
	}
	r.fitted = true
	return nil
}

// Predict returns NaN until Fit has succeeded.
func (r *Ridge) Predict(x []float64) float64 {
	if !r.fitted || len(x) != len(r.coef) {
		return math.NaN()
	}
	out := r.intercept
	for j, v := range x {
		out += r.coef[j] * (v - r.means[j]) / r.scales[j]
	}
	return out
}
