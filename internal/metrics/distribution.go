package metrics

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Weighted is one declared task and its weight, in declaration order.
type Weighted struct {
	Name   string
	Weight int
}

// FitRow compares one task's observed draws with its declared share.
type FitRow struct {
	Task          string  `json:"task"`
	Weight        int     `json:"weight"`
	Observed      int64   `json:"observed"`
	Expected      float64 `json:"expected"`
	ExpectedShare float64 `json:"expected_share"`
	ObservedShare float64 `json:"observed_share"`
}

// Fit is the outcome of a chi-squared goodness-of-fit test of the observed
// task mix against the declared weights.
type Fit struct {
	Rows             []FitRow `json:"rows"`
	Draws            int64    `json:"draws"`
	ChiSquare        float64  `json:"chi_square"`
	DegreesOfFreedom int      `json:"degrees_of_freedom"`
	Critical         float64  `json:"critical"`
	PValue           float64  `json:"p_value"`
	Alpha            float64  `json:"alpha"`
	Pass             bool     `json:"pass"`
}

// CheckDistribution tests whether observed draw counts fit the declared
// weights at significance level alpha. Draws of names that were never
// declared are an error. With no draws the check passes trivially.
func CheckDistribution(declared []Weighted, observed map[string]int64, alpha float64) (Fit, error) {
	if len(declared) == 0 {
		return Fit{}, fmt.Errorf("distribution check: no tasks declared")
	}
	if alpha <= 0 || alpha >= 1 {
		return Fit{}, fmt.Errorf("distribution check: alpha %v must be in (0, 1)", alpha)
	}

	var total int
	known := make(map[string]struct{}, len(declared))
	for _, d := range declared {
		if d.Weight <= 0 {
			return Fit{}, fmt.Errorf("distribution check: task %q has weight %d", d.Name, d.Weight)
		}
		if total > math.MaxInt-d.Weight {
			return Fit{}, fmt.Errorf("distribution check: total weight overflows at task %q", d.Name)
		}
		known[d.Name] = struct{}{}
		total += d.Weight
	}

	var unknown []string
	for name, n := range observed {
		if _, ok := known[name]; !ok && n > 0 {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return Fit{}, fmt.Errorf("distribution check: undeclared tasks observed: %s", strings.Join(unknown, ", "))
	}

	fit := Fit{
		Rows:             make([]FitRow, 0, len(declared)),
		DegreesOfFreedom: len(declared) - 1,
		PValue:           1,
		Alpha:            alpha,
	}
	for _, d := range declared {
		fit.Draws += observed[d.Name]
	}

	obs := make([]float64, 0, len(declared))
	exp := make([]float64, 0, len(declared))
	for _, d := range declared {
		share := float64(d.Weight) / float64(total)
		row := FitRow{
			Task:          d.Name,
			Weight:        d.Weight,
			Observed:      observed[d.Name],
			Expected:      share * float64(fit.Draws),
			ExpectedShare: share,
		}
		if fit.Draws > 0 {
			row.ObservedShare = float64(row.Observed) / float64(fit.Draws)
		}
		obs = append(obs, float64(row.Observed))
		exp = append(exp, row.Expected)
		fit.Rows = append(fit.Rows, row)
	}

	if fit.DegreesOfFreedom == 0 {
		// One task: every draw must be that task, which the undeclared
		// check above already guarantees.
		fit.Pass = true
		return fit, nil
	}

	fit.Critical = ChiSquareCritical(fit.DegreesOfFreedom, alpha)
	if fit.Draws == 0 {
		fit.Pass = true
		return fit, nil
	}
	fit.ChiSquare = stat.ChiSquare(obs, exp)
	fit.PValue = distuv.ChiSquared{K: float64(fit.DegreesOfFreedom)}.Survival(fit.ChiSquare)
	fit.Pass = fit.ChiSquare <= fit.Critical
	return fit, nil
}

// ChiSquareCritical returns the upper-alpha quantile of the chi-squared
// distribution with df degrees of freedom.
func ChiSquareCritical(df int, alpha float64) float64 {
	if df <= 0 {
		return 0
	}
	return distuv.ChiSquared{K: float64(df)}.Quantile(1 - alpha)
}
