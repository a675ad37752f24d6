package timewindow_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/wres/internal/domain/timewindow"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given window bounds", t, func() {
		Convey("When the latest lead is before the earliest lead", func() {
			_, err := timewindow.New(t0, t0, 6*time.Hour, 3*time.Hour, false)

			Convey("Then construction should fail", func() {
				So(errors.Is(err, timewindow.ErrInvalidTimeWindow), ShouldBeTrue)
			})
		})

		Convey("When the latest time is before the earliest time", func() {
			_, err := timewindow.New(t0, t0.Add(-time.Hour), 0, 0, false)
			So(errors.Is(err, timewindow.ErrInvalidTimeWindow), ShouldBeTrue)
		})

		Convey("When the bounds are equal", func() {
			w, err := timewindow.New(t0, t0, time.Hour, time.Hour, false)

			Convey("Then the window should match the exact lead only", func() {
				So(err, ShouldBeNil)
				So(w.Contains(t0, t0.Add(time.Hour)), ShouldBeTrue)
				So(w.Contains(t0, t0.Add(2*time.Hour)), ShouldBeFalse)
			})
		})

		Convey("When the windows are equal in value", func() {
			a, _ := timewindow.New(t0, t0.In(time.FixedZone("X", 3600)), 0, time.Hour, false)
			b, _ := timewindow.New(t0, t0, 0, time.Hour, false)

			Convey("Then they should be usable as the same map key", func() {
				m := map[timewindow.TimeWindow]int{a: 1}
				So(m[b], ShouldEqual, 1)
			})
		})
	})
}

func TestContains(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a six to twelve hour lead window", t, func() {
		w, err := timewindow.Leads(6*time.Hour, 12*time.Hour)
		So(err, ShouldBeNil)

		Convey("Then the earliest lead should be excluded and the latest included", func() {
			So(w.Contains(t0, t0.Add(6*time.Hour)), ShouldBeFalse)
			So(w.Contains(t0, t0.Add(7*time.Hour)), ShouldBeTrue)
			So(w.Contains(t0, t0.Add(12*time.Hour)), ShouldBeTrue)
			So(w.Contains(t0, t0.Add(13*time.Hour)), ShouldBeFalse)
		})
	})

	Convey("Given a valid-time window", t, func() {
		w, err := timewindow.New(t0, t0.Add(24*time.Hour), timewindow.MinLead, timewindow.MaxLead, true)
		So(err, ShouldBeNil)

		Convey("Then the valid time should be tested rather than the issue time", func() {
			So(w.Contains(t0.Add(-48*time.Hour), t0.Add(time.Hour)), ShouldBeTrue)
			So(w.Contains(t0, t0.Add(25*time.Hour)), ShouldBeFalse)
		})
	})

	Convey("Given the unbounded window", t, func() {
		w := timewindow.Unbounded()

		Convey("Then every pair should be contained", func() {
			So(w.Contains(t0, t0), ShouldBeTrue)
			So(w.Contains(t0, t0.Add(1000*time.Hour)), ShouldBeTrue)
		})
	})
}

func TestLeadWindows(t *testing.T) {
	Convey("Given a lead range of one day", t, func() {
		Convey("When generating back-to-back six hour windows", func() {
			ws, err := timewindow.LeadWindows(0, 24*time.Hour, 6*time.Hour, 0)

			Convey("Then four windows should cover the range", func() {
				So(err, ShouldBeNil)
				So(len(ws), ShouldEqual, 4)
				So(ws[0].EarliestLead, ShouldEqual, 0)
				So(ws[3].LatestLead, ShouldEqual, 24*time.Hour)
			})
		})

		Convey("When generating single leads every twelve hours", func() {
			ws, err := timewindow.LeadWindows(0, 24*time.Hour, 0, 12*time.Hour)

			Convey("Then each window should hold one lead", func() {
				So(err, ShouldBeNil)
				So(len(ws), ShouldEqual, 3)
				So(ws[1].EarliestLead, ShouldEqual, ws[1].LatestLead)
			})
		})

		Convey("When the range is inverted", func() {
			_, err := timewindow.LeadWindows(24*time.Hour, 0, time.Hour, 0)
			So(errors.Is(err, timewindow.ErrInvalidTimeWindow), ShouldBeTrue)
		})
	})
}
