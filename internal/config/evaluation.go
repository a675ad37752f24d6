package config

import (
	"fmt"
	"time"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timewindow"
)

// Evaluation is the declaration of one evaluation.
type Evaluation struct {
	Feature string `koanf:"feature" validate:"required"`
	Unit    string `koanf:"unit" default:"CMS" validate:"required"`
	// Left is the path of the observations.
	Left string `koanf:"left" validate:"required"`
	// Right lists the paths of the forecasts. Each path is a batch.
	Right []string `koanf:"right" validate:"required,min=1,dive,required"`
	// Baseline is the path of baseline forecasts, if any.
	Baseline string `koanf:"baseline"`
	// Ensemble reads the forecasts as ensembles.
	Ensemble bool `koanf:"ensemble"`

	Metrics    []string    `koanf:"metrics" validate:"required,min=1,dive,required"`
	Thresholds []Threshold `koanf:"thresholds" validate:"dive"`
	Leads      Leads       `koanf:"leads"`

	ReliabilityBins int `koanf:"reliability_bins" default:"10" validate:"gte=1"`
	ROCPoints       int `koanf:"roc_points" default:"10" validate:"gte=2"`
	// QuantileDigits rounds resolved quantile thresholds. Negative disables rounding.
	QuantileDigits *int `koanf:"quantile_digits" default:"-1" validate:"required,gte=-1,lte=15"`

	Climatology Climatology `koanf:"climatology"`
	Persistence Persistence `koanf:"persistence"`

	Output string `koanf:"output" validate:"required"`
}

// Threshold declares one threshold.
type Threshold struct {
	Name        string    `koanf:"name"`
	Operator    string    `koanf:"operator" default:"GREATER" validate:"oneof=GREATER LESS GREATER_EQUAL LESS_EQUAL EQUAL BETWEEN"`
	Values      []float64 `koanf:"values" validate:"required,min=1,max=2"`
	DataType    string    `koanf:"data_type" default:"LEFT_AND_RIGHT" validate:"oneof=LEFT RIGHT LEFT_AND_RIGHT ANY_RIGHT LEFT_AND_ANY_RIGHT BASELINE"`
	Probability bool      `koanf:"probability"`
}

// Leads declares the lead-duration windows.
type Leads struct {
	Earliest  time.Duration `koanf:"earliest"`
	Latest    time.Duration `koanf:"latest" default:"240h" validate:"gtefield=Earliest"`
	Period    time.Duration `koanf:"period" validate:"gte=0"`
	Frequency time.Duration `koanf:"frequency" validate:"gte=0"`
}

// Climatology declares the climatological baseline.
type Climatology struct {
	Enabled bool      `koanf:"enabled"`
	Start   time.Time `koanf:"start"`
	End     time.Time `koanf:"end"`
}

// Persistence declares the persistence baseline, built from the observations.
type Persistence struct {
	Enabled bool `koanf:"enabled"`
	// Order is the lag: 1 persists the latest observation before the issue time.
	Order int `koanf:"order" default:"1" validate:"gte=1"`
}

// Bounded reports whether a climatology period was declared.
func (c Climatology) Bounded() bool { return !c.Start.IsZero() || !c.End.IsZero() }

// MetricIDs resolves the declared metric names against reg.
func (e *Evaluation) MetricIDs(reg *metric.Registry) ([]metric.ID, error) {
	out := make([]metric.ID, 0, len(e.Metrics))
	for _, name := range e.Metrics {
		d, err := reg.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		out = append(out, d.ID)
	}
	return out, nil
}

// BuildThresholds converts the declared thresholds.
func (e *Evaluation) BuildThresholds() ([]threshold.Threshold, error) {
	out := make([]threshold.Threshold, 0, len(e.Thresholds))
	for i, t := range e.Thresholds {
		var opts []threshold.Option
		if t.Name != "" {
			opts = append(opts, threshold.WithName(t.Name))
		}
		if t.Probability {
			opts = append(opts, threshold.AsProbability())
		} else {
			opts = append(opts, threshold.WithUnit(e.Unit))
		}
		th, err := threshold.New(threshold.Operator(t.Operator), threshold.DataType(t.DataType), t.Values, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: threshold %d: %w", ErrInvalidConfig, i, err)
		}
		out = append(out, th)
	}
	return out, nil
}

// Windows generates the declared lead windows.
func (e *Evaluation) Windows() ([]timewindow.TimeWindow, error) {
	ws, err := timewindow.LeadWindows(e.Leads.Earliest, e.Leads.Latest, e.Leads.Period, e.Leads.Frequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(ws) == 0 {
		return nil, fmt.Errorf("%w: the lead declaration gives no windows", ErrInvalidConfig)
	}
	return ws, nil
}

// Digits returns the quantile rounding digits.
func (e *Evaluation) Digits() int {
	if e.QuantileDigits == nil {
		return -1
	}
	return *e.QuantileDigits
}
