package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/okian/wres/internal/domain/statistic"
	. "github.com/smartystreets/goconvey/convey"
)

func evaluation(feature string) *Evaluation {
	return &Evaluation{
		ID:      uuid.New(),
		Feature: feature,
		Results: statistic.NewMap().Results(nil),
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store holding two evaluations", t, func() {
		s := NewStore(WithCapacity(2))
		a, b := evaluation("A"), evaluation("B")
		So(s.Save(ctx, a), ShouldBeNil)
		So(s.Save(ctx, b), ShouldBeNil)

		Convey("Then both should be retrievable", func() {
			got, err := s.Get(ctx, a.ID)
			So(err, ShouldBeNil)
			So(got.Feature, ShouldEqual, "A")
			So(s.Count(ctx), ShouldEqual, 2)
		})

		Convey("Then recent should list the newest first", func() {
			recent, err := s.Recent(ctx, 5)
			So(err, ShouldBeNil)
			So(len(recent), ShouldEqual, 2)
			So(recent[0].Feature, ShouldEqual, "B")
			So(recent[1].Feature, ShouldEqual, "A")
		})

		Convey("When a third evaluation is saved", func() {
			c := evaluation("C")
			So(s.Save(ctx, c), ShouldBeNil)

			Convey("Then the oldest should be evicted", func() {
				_, err := s.Get(ctx, a.ID)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(s.Count(ctx), ShouldEqual, 2)
			})
		})

		Convey("When an evaluation is saved again", func() {
			So(s.Save(ctx, a), ShouldBeNil)

			Convey("Then it should become the newest without duplicating", func() {
				recent, _ := s.Recent(ctx, 2)
				So(recent[0].Feature, ShouldEqual, "A")
				So(s.Count(ctx), ShouldEqual, 2)
			})
		})
	})

	Convey("Given invalid input", t, func() {
		s := NewStore()

		Convey("Then saving nil should fail", func() {
			So(s.Save(ctx, nil), ShouldEqual, ErrNilResults)
			So(s.Save(ctx, &Evaluation{ID: uuid.New()}), ShouldEqual, ErrNilResults)
		})

		Convey("Then a non-positive limit should fail", func() {
			_, err := s.Recent(ctx, 0)
			So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
		})
	})

	Convey("Given concurrent writers", t, func() {
		s := NewStore(WithCapacity(10))
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Save(ctx, evaluation("F"))
			}()
		}
		wg.Wait()

		Convey("Then the capacity should hold", func() {
			So(s.Count(ctx), ShouldEqual, 10)
		})
	})
}
