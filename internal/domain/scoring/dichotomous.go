package scoring

import (
	"fmt"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/statistic"
)

// Row and column labels of the contingency table.
const (
	ForecastYes = "FORECAST_YES"
	ForecastNo  = "FORECAST_NO"
	ObservedYes = "OBSERVED_YES"
	ObservedNo  = "OBSERVED_NO"
)

func collectContingency(pool *pairs.Pool[pairs.Dichotomous]) (statistic.State, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	var c statistic.Contingency
	for _, p := range pool.Pairs() {
		c.Add(p.Left, p.Right)
	}
	return c, nil
}

func asContingency(id metric.ID, state statistic.State) (statistic.Contingency, error) {
	c, ok := state.(statistic.Contingency)
	if !ok {
		return c, fmt.Errorf("%w: %s cannot finish %T", ErrMetricInput, id, state)
	}
	return c, nil
}

// contingencyTable reports the 2x2 table with forecast rows and observed columns.
type contingencyTable struct {
	base
}

func (t *contingencyTable) Apply(pool *pairs.Pool[pairs.Dichotomous]) (statistic.Statistic, error) {
	st, err := t.Collect(pool)
	if err != nil {
		return nil, err
	}
	return t.Finish(st, "")
}

func (t *contingencyTable) Collect(pool *pairs.Pool[pairs.Dichotomous]) (statistic.State, error) {
	return collectContingency(pool)
}

func (t *contingencyTable) Finish(state statistic.State, _ string) (statistic.Statistic, error) {
	c, err := asContingency(t.ID(), state)
	if err != nil {
		return nil, err
	}
	return statistic.Matrix{
		Meta:    t.meta("", c.Total()),
		Rows:    []string{ForecastYes, ForecastNo},
		Columns: []string{ObservedYes, ObservedNo},
		Values: [][]float64{
			{float64(c.Hits), float64(c.FalseAlarms)},
			{float64(c.Misses), float64(c.CorrectNegatives)},
		},
	}, nil
}

// contingencyScore is a score derived from the contingency table.
type contingencyScore struct {
	score
	fn func(statistic.Contingency) float64
}

func (s *contingencyScore) Apply(pool *pairs.Pool[pairs.Dichotomous]) (statistic.Statistic, error) {
	st, err := s.Collect(pool)
	if err != nil {
		return nil, err
	}
	return s.Finish(st, "")
}

func (s *contingencyScore) Collect(pool *pairs.Pool[pairs.Dichotomous]) (statistic.State, error) {
	return collectContingency(pool)
}

func (s *contingencyScore) Finish(state statistic.State, _ string) (statistic.Statistic, error) {
	c, err := asContingency(s.ID(), state)
	if err != nil {
		return nil, err
	}
	return s.single("", c.Total(), s.fn(c)), nil
}

func detection(c statistic.Contingency) float64 {
	return divide(float64(c.Hits), float64(c.Hits+c.Misses))
}

func falseDetection(c statistic.Contingency) float64 {
	return divide(float64(c.FalseAlarms), float64(c.FalseAlarms+c.CorrectNegatives))
}

func threat(c statistic.Contingency) float64 {
	return divide(float64(c.Hits), float64(c.Hits+c.Misses+c.FalseAlarms))
}

// equitableThreat discounts the hits expected by chance.
func equitableThreat(c statistic.Contingency) float64 {
	n := float64(c.Total())
	if n == 0 {
		return divide(0, 0)
	}
	chance := float64(c.Hits+c.Misses) * float64(c.Hits+c.FalseAlarms) / n
	return divide(float64(c.Hits)-chance, float64(c.Hits+c.Misses+c.FalseAlarms)-chance)
}

func frequencyBias(c statistic.Contingency) float64 {
	return divide(float64(c.Hits+c.FalseAlarms), float64(c.Hits+c.Misses))
}

func peirce(c statistic.Contingency) float64 {
	return detection(c) - falseDetection(c)
}
