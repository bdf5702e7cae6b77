package pace

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/apexsim/racesim/internal/domain/history"
	"github.com/apexsim/racesim/internal/domain/model"
)

// fitDriver regresses the driver's corrected lap times on fuel load,
// tire age and compound indicator columns. The compound with the lowest
// index among those observed serves as the reference level and keeps a
// zero offset.
func fitDriver(obs []history.LapObservation) (fit, error) {
	seen := make(map[model.Compound]bool)
	for _, o := range obs {
		seen[o.Compound] = true
	}
	var compounds []model.Compound
	for c := range seen {
		compounds = append(compounds, c)
	}
	sort.Slice(compounds, func(i, j int) bool {
		return compounds[i].Index() < compounds[j].Index()
	})
	// Dummy columns for everything but the reference compound.
	dummies := compounds[1:]

	n := len(obs)
	p := 3 + len(dummies)
	if n <= p {
		return fit{}, fmt.Errorf("%w: %d laps for %d parameters",
			ErrInsufficientLaps, n, p)
	}

	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, o := range obs {
		x.Set(i, 0, 1)
		x.Set(i, 1, o.FuelLoad)
		x.Set(i, 2, float64(o.TireAge))
		for j, c := range dummies {
			if o.Compound == c {
				x.Set(i, 3+j, 1)
			}
		}
		y.SetVec(i, o.LapTime-o.Baseline)
	}

	var qr mat.QR
	qr.Factorize(x)
	coef := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(coef, false, y); err != nil {
		return fit{}, fmt.Errorf("%w: %v", ErrSingularFit, err)
	}

	f := fit{
		intercept: coef.AtVec(0),
		fuel:      coef.AtVec(1),
		tireAge:   coef.AtVec(2),
	}
	for j, c := range dummies {
		f.compound[c.Index()] = coef.AtVec(3 + j)
	}

	// Residual standard deviation with the degrees-of-freedom correction.
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(x, coef)
	var ssr float64
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		ssr += r * r
	}
	f.variability = math.Sqrt(ssr / float64(n-p))
	if math.IsNaN(f.variability) || math.IsInf(f.variability, 0) {
		return fit{}, fmt.Errorf("%w: non-finite residual spread", ErrSingularFit)
	}
	return f, nil
}
