package mutant

import "lasso.dev/pkg/lasso/internal/model"

// Score is the share of killed mutants among the killed and survived ones
// across reports. Mutants that errored are not counted. counted is zero
// when no mutant was judged.
func Score(reports []model.Report) (score float64, counted int) {
	killed := 0

	for _, report := range reports {
		for _, mutant := range report.Mutants {
			switch mutant.Status {
			case model.Killed:
				killed++
				counted++
			case model.Survived:
				counted++
			}
		}
	}

	if counted == 0 {
		return 0, 0
	}

	return float64(killed) / float64(counted), counted
}
