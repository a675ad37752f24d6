package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/model"
	"github.com/okian/wres/internal/domain/scoring"
	"github.com/okian/wres/internal/domain/statistic"
	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timewindow"
	"github.com/okian/wres/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRunRecord(t *testing.T) {
	Convey("Given an evaluation run", t, func() {
		So(logger.Init(), ShouldBeNil)
		r := &run{
			id:      uuid.New(),
			req:     Request{Unit: "CMS"},
			stats:   statistic.NewMap(),
			catalog: scoring.NewCatalog(metric.NewRegistry()),
			logger:  logger.Get(),
		}
		key := statistic.Key{Window: timewindow.Unbounded(), Threshold: threshold.AllData()}
		ctx := context.Background()

		var m statistic.Moments
		m.Add(1, 2)
		r.Record(ctx, model.NewTask(key, metric.MeanError, 0, 1, nil), model.Outcome{State: m}, nil)
		r.Record(ctx, model.NewTask(key, metric.MeanError, 1, 1, nil), model.Outcome{State: m}, nil)

		Convey("When one batch of a metric fails", func() {
			r.Record(ctx, model.NewTask(key, metric.MeanSquareError, 0, 1, nil), model.Outcome{State: m}, nil)
			r.Record(ctx, model.NewTask(key, metric.MeanSquareError, 1, 1, nil), model.Outcome{}, errors.New("boom"))
			res := r.stats.Results(r.finish)

			Convey("Then the metric should be reported as failed", func() {
				_, ok := res.Statistic(key, metric.MeanSquareError)
				So(ok, ShouldBeFalse)
				So(len(res.Failures()), ShouldEqual, 1)
				So(res.Failures()[0].Metric, ShouldEqual, metric.MeanSquareError)
			})

			Convey("Then the rest of the key should survive", func() {
				s, ok := res.Statistic(key, metric.MeanError)
				So(ok, ShouldBeTrue)
				So(s.(statistic.DoubleScore).Value(), ShouldEqual, 1)
				So(s.Metadata().SampleSize, ShouldEqual, 2)
			})
		})

		Convey("When only one batch of a skill score carries a baseline", func() {
			withBase := m
			base := statistic.Moments{}
			base.Add(1, 3)
			withBase.Baseline = &base
			r.Record(ctx, model.NewTask(key, metric.MeanSquareErrorSkillScore, 0, 1, nil), model.Outcome{State: withBase}, nil)
			r.Record(ctx, model.NewTask(key, metric.MeanSquareErrorSkillScore, 1, 1, nil), model.Outcome{State: m}, nil)
			res := r.stats.Results(r.finish)

			Convey("Then the skill score should fail instead of switching reference", func() {
				_, ok := res.Statistic(key, metric.MeanSquareErrorSkillScore)
				So(ok, ShouldBeFalse)
				So(len(res.Failures()), ShouldEqual, 1)
				So(errors.Is(res.Failures()[0].Err, statistic.ErrIncompatibleState), ShouldBeTrue)
			})
		})

		Convey("When incompatible states are merged", func() {
			r.Record(ctx, model.NewTask(key, metric.MeanError, 2, 1, nil), model.Outcome{State: statistic.Contingency{Hits: 1}}, nil)
			res := r.stats.Results(r.finish)

			Convey("Then the merge error should become a failure", func() {
				So(len(res.Failures()), ShouldEqual, 1)
				So(errors.Is(res.Failures()[0].Err, statistic.ErrIncompatibleState), ShouldBeTrue)
			})
		})
	})
}
