package pairs_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timeseries"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOf(t *testing.T) {
	meta := pairs.Metadata{Feature: "DRRC2", Unit: "CMS"}

	Convey("Given pool construction", t, func() {
		Convey("When the pairs are nil", func() {
			_, err := pairs.Of[pairs.SingleValued](nil, nil, meta)

			Convey("Then it should fail as a pool error", func() {
				So(errors.Is(err, pairs.ErrNilPairs), ShouldBeTrue)
				So(errors.Is(err, pairs.ErrPool), ShouldBeTrue)
			})
		})

		Convey("When the pairs are empty", func() {
			_, err := pairs.Of([]pairs.SingleValued{}, nil, meta)
			So(errors.Is(err, pairs.ErrEmptyPairs), ShouldBeTrue)
		})

		Convey("When the baseline is present but empty", func() {
			_, err := pairs.Of([]pairs.SingleValued{{Left: 1, Right: 2}}, []pairs.SingleValued{}, meta)
			So(errors.Is(err, pairs.ErrEmptyBaseline), ShouldBeTrue)
		})

		Convey("When the baseline is nil", func() {
			p, err := pairs.Of([]pairs.SingleValued{{Left: 1, Right: 2}}, nil, meta)

			Convey("Then the pool should have no baseline", func() {
				So(err, ShouldBeNil)
				So(p.HasBaseline(), ShouldBeFalse)
				So(p.Baseline(), ShouldBeNil)
				So(p.Len(), ShouldEqual, 1)
				So(p.Metadata().Feature, ShouldEqual, "DRRC2")
			})
		})

		Convey("When probability pairs fall outside the unit interval", func() {
			_, err := pairs.Of([]pairs.Probability{{Left: 1, Right: 1.2}}, nil, meta)
			So(errors.Is(err, pairs.ErrMalformedPair), ShouldBeTrue)

			_, err = pairs.Of([]pairs.Probability{{Left: 1, Right: 0.2}}, []pairs.Probability{{Left: -0.1, Right: 0}}, meta)
			So(errors.Is(err, pairs.ErrMalformedPair), ShouldBeTrue)
		})

		Convey("When multicategory pairs have inconsistent widths", func() {
			_, err := pairs.Of([]pairs.Multicategory{
				{Left: []bool{true, false, false}, Right: []bool{false, true, false}},
				{Left: []bool{true, false}, Right: []bool{false, true}},
			}, nil, meta)
			So(errors.Is(err, pairs.ErrMalformedPair), ShouldBeTrue)

			_, err = pairs.Of([]pairs.Multicategory{{Left: []bool{true}, Right: []bool{true}}}, nil, meta)
			So(errors.Is(err, pairs.ErrMalformedPair), ShouldBeTrue)
		})

		Convey("When the input slice is modified after construction", func() {
			in := []pairs.Ensemble{{Left: 1, Right: []float64{1, 2}}}
			p, err := pairs.Of(in, nil, meta)
			So(err, ShouldBeNil)
			in[0].Right[0] = 99

			Convey("Then the pool should be unaffected", func() {
				So(p.Pairs()[0].Right[0], ShouldEqual, 1)
			})
		})
	})

	Convey("Given the probability pair constructor", t, func() {
		_, err := pairs.NewProbability(0.5, 1.5)
		So(errors.Is(err, pairs.ErrInvalidPair), ShouldBeTrue)

		p, err := pairs.NewProbability(1, 0.25)
		So(err, ShouldBeNil)
		So(p.Right, ShouldEqual, 0.25)
	})
}

func TestFilterTransformConcat(t *testing.T) {
	meta := pairs.Metadata{Feature: "F"}
	pool, err := pairs.Of(
		[]pairs.SingleValued{{Left: 1, Right: 2}, {Left: 5, Right: 6}, {Left: math.NaN(), Right: 1}},
		[]pairs.SingleValued{{Left: 1, Right: 9}},
		meta,
	)
	if err != nil {
		t.Fatal(err)
	}

	Convey("Given a pool with a baseline", t, func() {
		Convey("When filtering everything out", func() {
			empty := pool.Filter(func(pairs.SingleValued) bool { return false }, nil)

			Convey("Then an empty pool should be returned rather than an error", func() {
				So(empty.Len(), ShouldEqual, 0)
				So(empty.HasBaseline(), ShouldBeTrue)
				So(empty.Baseline().Len(), ShouldEqual, 0)
				So(pool.Len(), ShouldEqual, 3)
			})
		})

		Convey("When transforming to dichotomous pairs", func() {
			thr, _ := threshold.New(threshold.Greater, threshold.Left, []float64{3})
			d, err := pairs.Transform(pool, pairs.ToDichotomous(thr))

			Convey("Then each side should be classified and non-finite pairs dropped", func() {
				So(err, ShouldBeNil)
				So(d.Pairs(), ShouldResemble, []pairs.Dichotomous{{Left: false, Right: false}, {Left: true, Right: true}})
				So(d.Baseline().Pairs(), ShouldResemble, []pairs.Dichotomous{{Left: false, Right: true}})
			})
		})

		Convey("When concatenating two pools", func() {
			joined, err := pairs.Concat(pool, pool)

			Convey("Then pairs and baselines should be joined in order", func() {
				So(err, ShouldBeNil)
				So(joined.Len(), ShouldEqual, 6)
				So(joined.Baseline().Len(), ShouldEqual, 2)
			})
		})

		Convey("When a climatology is attached", func() {
			withClim := pool.WithClimatology([]float64{1, 2, 3})
			So(withClim.Climatology(), ShouldResemble, []float64{1, 2, 3})
			So(pool.Climatology(), ShouldBeEmpty)
		})
	})
}

func TestEnsembleTransforms(t *testing.T) {
	Convey("Given an ensemble pair", t, func() {
		thr, _ := threshold.New(threshold.Greater, threshold.Left, []float64{2})
		p := pairs.Ensemble{Left: 3, Right: []float64{1, 2.5, 3, math.NaN()}}

		Convey("When converted to a probability pair", func() {
			prob, ok := pairs.ToProbability(thr)(p)

			Convey("Then the right should be the fraction of finite members above", func() {
				So(ok, ShouldBeTrue)
				So(prob.Left, ShouldEqual, 1)
				So(prob.Right, ShouldAlmostEqual, 2.0/3.0, 1e-12)
			})
		})

		Convey("When reduced to the ensemble mean", func() {
			sv, _ := pairs.ToEnsembleMean(p)
			So(sv.Right, ShouldAlmostEqual, 6.5/3, 1e-12)
		})
	})
}

func TestByValidTime(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given an observed series and a forecast issued at T0", t, func() {
		obs := timeseries.Of(timeseries.Metadata{},
			timeseries.Event[float64]{Time: t0.Add(6 * time.Hour), Value: 10},
			timeseries.Event[float64]{Time: t0.Add(12 * time.Hour), Value: 20},
		)
		fc := timeseries.Of(timeseries.Metadata{ReferenceTimes: map[timeseries.ReferenceTimeType]time.Time{timeseries.T0: t0}},
			timeseries.Event[float64]{Time: t0.Add(6 * time.Hour), Value: 11},
			timeseries.Event[float64]{Time: t0.Add(12 * time.Hour), Value: 19},
			timeseries.Event[float64]{Time: t0.Add(18 * time.Hour), Value: 25},
		)

		timed := pairs.ByValidTime(obs, fc, pairs.SingleValuedOf)

		Convey("Then matching valid times should be paired with their leads", func() {
			So(len(timed), ShouldEqual, 2)
			So(timed[0].Pair, ShouldResemble, pairs.SingleValued{Left: 10, Right: 11})
			So(timed[0].Lead(), ShouldEqual, 6*time.Hour)
			So(timed[1].Lead(), ShouldEqual, 12*time.Hour)
		})
	})
}
