package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// CVReport is the pooled out-of-fold diagnostic of a k-fold cross-validation.
type CVReport struct {
	Folds       int
	Correlation float64
	MAE         float64
	RMSE        float64
}

// CrossValidate shuffles the instances with seed, splits them into folds and fits a fresh
// regressor per fold. Folds larger than the instance count are reduced to one instance each.
func CrossValidate(newRegressor func() Regressor, X [][]float64, y []float64, folds int, seed int64) (CVReport, error) {
	n := len(X)
	if n < 2 {
		return CVReport{}, errEmptyTrainingSet
	}
	if folds > n {
		folds = n
	}
	if folds < 2 {
		folds = 2
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	fold := make([]int, n)
	for pos, idx := range perm {
		fold[idx] = pos % folds
	}

	preds := make([]float64, n)
	for f := 0; f < folds; f++ {
		var trainX [][]float64
		var trainY []float64
		for i := 0; i < n; i++ {
			if fold[i] != f {
				trainX = append(trainX, X[i])
				trainY = append(trainY, y[i])
			}
		}
		reg := newRegressor()
		if err := reg.Fit(trainX, trainY); err != nil {
			return CVReport{}, err
		}
		for i := 0; i < n; i++ {
			if fold[i] == f {
				preds[i] = reg.Predict(X[i])
			}
		}
	}

	var absSum, sqSum float64
	for i := range preds {
		d := preds[i] - y[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	corr := stat.Correlation(preds, y, nil)
	if math.IsNaN(corr) || math.IsInf(corr, 0) {
		corr = 0
	}
	return CVReport{
		Folds:       folds,
		Correlation: corr,
		MAE:         absSum / float64(n),
		RMSE:        math.Sqrt(sqSum / float64(n)),
	}, nil
}
