package statistic_test

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/statistic"
	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timewindow"
	. "github.com/smartystreets/goconvey/convey"
)

func moments(pairs ...[2]float64) statistic.Moments {
	var m statistic.Moments
	for _, p := range pairs {
		m.Add(p[0], p[1])
	}
	return m
}

// shouldMatchMoments compares the exact sums and the floating running spread.
func shouldMatchMoments(actual any, expected ...any) string {
	a, b := actual.(statistic.Moments), expected[0].(statistic.Moments)
	if msg := ShouldAlmostEqual(a.MeanLeft, b.MeanLeft, 1e-12); msg != "" {
		return "MeanLeft: " + msg
	}
	if msg := ShouldAlmostEqual(a.M2Left, b.M2Left, 1e-9); msg != "" {
		return "M2Left: " + msg
	}
	a.MeanLeft, a.M2Left, b.MeanLeft, b.M2Left = 0, 0, 0, 0
	return ShouldResemble(a, b)
}

func TestMerge(t *testing.T) {
	Convey("Given three partial moment states", t, func() {
		a := moments([2]float64{1, 2}, [2]float64{3, 3})
		b := moments([2]float64{5, 4})
		c := moments([2]float64{0, 1}, [2]float64{2, 6})

		Convey("When merged in different groupings", func() {
			ab, err := a.Merge(b)
			So(err, ShouldBeNil)
			left, _ := ab.Merge(c)
			bc, _ := b.Merge(c)
			right, _ := a.Merge(bc)
			ca, _ := c.Merge(a)
			swapped, _ := ca.Merge(b)

			Convey("Then the results should be identical", func() {
				So(left, shouldMatchMoments, right)
				So(left, shouldMatchMoments, swapped)
				So(left.(statistic.Moments).Count, ShouldEqual, 5)
				So(left, shouldMatchMoments, moments([2]float64{1, 2}, [2]float64{3, 3}, [2]float64{5, 4}, [2]float64{0, 1}, [2]float64{2, 6}))
				So(left.(statistic.Moments).LeftVariance(), ShouldAlmostEqual, 2.96, 1e-12)
			})
		})

		Convey("When merged with an empty state", func() {
			merged, err := statistic.Moments{}.Merge(a)
			So(err, ShouldBeNil)
			So(merged, ShouldResemble, a)
		})

		Convey("When only one side carries a baseline", func() {
			withBase := a
			base := moments([2]float64{1, 1})
			withBase.Baseline = &base
			_, err := withBase.Merge(b)
			So(errors.Is(err, statistic.ErrIncompatibleState), ShouldBeTrue)
			_, err = b.Merge(withBase)
			So(errors.Is(err, statistic.ErrIncompatibleState), ShouldBeTrue)
		})

		Convey("When both sides carry a baseline", func() {
			x, y := a, b
			bx, by := moments([2]float64{1, 1}), moments([2]float64{2, 4})
			x.Baseline, y.Baseline = &bx, &by
			merged, err := x.Merge(y)
			So(err, ShouldBeNil)
			So(merged.(statistic.Moments).Baseline.Count, ShouldEqual, 2)
			So(merged.(statistic.Moments).Baseline.MeanSquareError(), ShouldEqual, 2)
		})

		Convey("When merging a different kind of state", func() {
			_, err := a.Merge(statistic.Contingency{})
			So(errors.Is(err, statistic.ErrIncompatibleState), ShouldBeTrue)
		})
	})

	Convey("Given contingency and reliability states", t, func() {
		var x, y statistic.Contingency
		x.Add(true, true)
		x.Add(false, true)
		y.Add(true, false)
		y.Add(false, false)
		merged, err := x.Merge(y)

		So(err, ShouldBeNil)
		So(merged, ShouldResemble, statistic.Contingency{Hits: 1, FalseAlarms: 1, Misses: 1, CorrectNegatives: 1})
		So(merged.(statistic.Contingency).Total(), ShouldEqual, 4)

		_, err = statistic.NewReliabilityBins(10).Merge(statistic.NewReliabilityBins(5))
		So(errors.Is(err, statistic.ErrIncompatibleState), ShouldBeTrue)
	})
}

func key(lead int) statistic.Key {
	w, _ := timewindow.Leads(time.Duration(lead-6)*time.Hour, time.Duration(lead)*time.Hour)
	return statistic.Key{Window: w, Threshold: threshold.AllData()}
}

func finishMoments(id metric.ID, s statistic.State) (statistic.Statistic, error) {
	m, ok := s.(statistic.Moments)
	if !ok {
		return nil, fmt.Errorf("unexpected %T", s)
	}
	return statistic.DoubleScore{
		Meta:       statistic.Meta{Metric: id, SampleSize: m.Count},
		Components: []statistic.Component{{Name: metric.Main, Value: m.MeanSquareError()}},
	}, nil
}

func TestMap(t *testing.T) {
	Convey("Given an aggregation map", t, func() {
		m := statistic.NewMap(statistic.WithStripes(4))

		Convey("When the same statistic is put twice", func() {
			s := statistic.DoubleScore{Meta: statistic.Meta{Metric: metric.MeanError}}
			So(m.Put(key(6), s), ShouldBeNil)
			err := m.Put(key(6), s)
			So(errors.Is(err, statistic.ErrDuplicateStatistic), ShouldBeTrue)
		})

		Convey("When partial states arrive concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = m.Merge(key(6+6*(i%3)), metric.MeanSquareError, moments([2]float64{0, 1}))
				}(i)
			}
			wg.Wait()
			res := m.Results(finishMoments)

			Convey("Then every state should be folded and keys ordered by lead", func() {
				keys := res.Keys()
				So(len(keys), ShouldEqual, 3)
				So(keys[0].Window.LatestLead, ShouldEqual, 6*time.Hour)
				So(keys[2].Window.LatestLead, ShouldEqual, 18*time.Hour)
				total := 0
				for _, k := range keys {
					st, ok := res.Statistic(k, metric.MeanSquareError)
					So(ok, ShouldBeTrue)
					total += st.Metadata().SampleSize
				}
				So(total, ShouldEqual, 50)
				So(res.Len(), ShouldEqual, 3)
			})
		})

		Convey("When a metric fails in one batch", func() {
			_ = m.Merge(key(6), metric.MeanSquareError, moments([2]float64{0, 1}))
			m.Fail(key(6), metric.MeanSquareError, errors.New("boom"))
			_ = m.Put(key(6), statistic.DoubleScore{Meta: statistic.Meta{Metric: metric.MeanError}})
			res := m.Results(finishMoments)

			Convey("Then it should be reported as a failure and the rest kept", func() {
				So(len(res.Failures()), ShouldEqual, 1)
				So(res.Failures()[0].Metric, ShouldEqual, metric.MeanSquareError)
				_, ok := res.Statistic(key(6), metric.MeanSquareError)
				So(ok, ShouldBeFalse)
				So(len(res.Get(key(6))), ShouldEqual, 1)
			})
		})
	})
}

func TestFlatten(t *testing.T) {
	Convey("Given a matrix statistic", t, func() {
		m := statistic.Matrix{
			Rows:    []string{"FY", "FN"},
			Columns: []string{"OY", "ON"},
			Values:  [][]float64{{1, 2}, {3, 4}},
		}
		entries := statistic.Flatten(m)

		So(len(entries), ShouldEqual, 4)
		So(entries[1], ShouldResemble, statistic.Entry{Name: "FY:ON", Index: 1, Value: 2})
		So(entries[3].Value, ShouldEqual, 4)
	})
}

func TestScoreSum(t *testing.T) {
	Convey("Given two score sums with baselines", t, func() {
		a := statistic.ScoreSum{Count: 1, Sum: 2, Baseline: &statistic.ScoreSum{Count: 1, Sum: 4}}
		b := statistic.ScoreSum{Count: 3, Sum: 2, Baseline: &statistic.ScoreSum{Count: 3, Sum: 4}}

		Convey("When merged", func() {
			got, err := a.Merge(b)
			So(err, ShouldBeNil)
			s := got.(statistic.ScoreSum)

			Convey("Then the sums and the baselines should add", func() {
				So(s.Mean(), ShouldEqual, 1)
				So(s.Baseline.Mean(), ShouldEqual, 2)
			})
		})

		Convey("When only one side carries a baseline", func() {
			_, err := a.Merge(statistic.ScoreSum{Count: 1, Sum: 1})
			So(errors.Is(err, statistic.ErrIncompatibleState), ShouldBeTrue)
		})
	})

	Convey("Given an empty score sum", t, func() {
		So(math.IsNaN(statistic.ScoreSum{}.Mean()), ShouldBeTrue)
	})
}

func TestRankCounts(t *testing.T) {
	Convey("Given rank counts over three members", t, func() {
		a := statistic.RankCounts{Counts: []float64{1, 0.5, 0.5, 0}, Pairs: 2}

		Convey("When merged with counts of the same length", func() {
			got, err := a.Merge(statistic.RankCounts{Counts: []float64{0, 0, 0, 1}, Pairs: 1})
			So(err, ShouldBeNil)
			So(got, ShouldResemble, statistic.RankCounts{Counts: []float64{1, 0.5, 0.5, 1}, Pairs: 3})
		})

		Convey("When merged with a batch that counted nothing", func() {
			got, err := statistic.RankCounts{}.Merge(a)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, a)
		})

		Convey("When merged with counts over a different ensemble size", func() {
			_, err := a.Merge(statistic.RankCounts{Counts: []float64{1, 0}, Pairs: 1})
			So(errors.Is(err, statistic.ErrIncompatibleState), ShouldBeTrue)
		})
	})
}
