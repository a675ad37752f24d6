// Package metric names the verification metrics and describes their properties.
package metric

// ID identifies a metric.
type ID string

// Single-valued scores.
const (
	MeanError                     ID = "MEAN_ERROR"
	MeanAbsoluteError             ID = "MEAN_ABSOLUTE_ERROR"
	MeanSquareError               ID = "MEAN_SQUARE_ERROR"
	RootMeanSquareError           ID = "ROOT_MEAN_SQUARE_ERROR"
	SumOfSquareError              ID = "SUM_OF_SQUARE_ERROR"
	BiasFraction                  ID = "BIAS_FRACTION"
	PearsonCorrelationCoefficient ID = "PEARSON_CORRELATION_COEFFICIENT"
	CoefficientOfDetermination    ID = "COEFFICIENT_OF_DETERMINATION"
	MeanSquareErrorSkillScore     ID = "MEAN_SQUARE_ERROR_SKILL_SCORE"
	KlingGuptaEfficiency          ID = "KLING_GUPTA_EFFICIENCY"
	IndexOfAgreement              ID = "INDEX_OF_AGREEMENT"
	VolumetricEfficiency          ID = "VOLUMETRIC_EFFICIENCY"
	SampleSize                    ID = "SAMPLE_SIZE"
)

// Univariate statistics of each side of a pool.
const (
	Mean              ID = "MEAN"
	Minimum           ID = "MINIMUM"
	Maximum           ID = "MAXIMUM"
	StandardDeviation ID = "STANDARD_DEVIATION"
	Median            ID = "MEDIAN"
	MeanAbsolute      ID = "MEAN_ABSOLUTE"
)

// Probability metrics.
const (
	BrierScore                             ID = "BRIER_SCORE"
	BrierSkillScore                        ID = "BRIER_SKILL_SCORE"
	RelativeOperatingCharacteristicScore   ID = "RELATIVE_OPERATING_CHARACTERISTIC_SCORE"
	RelativeOperatingCharacteristicDiagram ID = "RELATIVE_OPERATING_CHARACTERISTIC_DIAGRAM"
	ReliabilityDiagram                     ID = "RELIABILITY_DIAGRAM"
)

// Ensemble metrics.
const (
	ContinuousRankedProbabilityScore      ID = "CONTINUOUS_RANKED_PROBABILITY_SCORE"
	ContinuousRankedProbabilitySkillScore ID = "CONTINUOUS_RANKED_PROBABILITY_SKILL_SCORE"
	RankHistogram                         ID = "RANK_HISTOGRAM"
)

// Dichotomous metrics.
const (
	ContingencyTable            ID = "CONTINGENCY_TABLE"
	ProbabilityOfDetection      ID = "PROBABILITY_OF_DETECTION"
	ProbabilityOfFalseDetection ID = "PROBABILITY_OF_FALSE_DETECTION"
	ThreatScore                 ID = "THREAT_SCORE"
	EquitableThreatScore        ID = "EQUITABLE_THREAT_SCORE"
	FrequencyBias               ID = "FREQUENCY_BIAS"
	PeirceSkillScore            ID = "PEIRCE_SKILL_SCORE"
)

// SampleDataGroup is the pair type a metric consumes.
type SampleDataGroup string

const (
	SingleValuedInput  SampleDataGroup = "SINGLE_VALUED"
	EnsembleInput      SampleDataGroup = "ENSEMBLE"
	DichotomousInput   SampleDataGroup = "DICHOTOMOUS"
	ProbabilityInput   SampleDataGroup = "DISCRETE_PROBABILITY"
	MulticategoryInput SampleDataGroup = "MULTICATEGORY"
)

// StatisticGroup is the shape of a metric's output.
type StatisticGroup string

const (
	DoubleScore StatisticGroup = "DOUBLE_SCORE"
	Diagram     StatisticGroup = "DIAGRAM"
	Matrix      StatisticGroup = "MATRIX"
)

// ScoreGroup is the decomposition class of a score.
type ScoreGroup string

const (
	NoDecomposition ScoreGroup = "NONE"
	CR              ScoreGroup = "CR"
	CRPOT           ScoreGroup = "CR_POT"
	LBR             ScoreGroup = "LBR"
	CRAndLBR        ScoreGroup = "CR_AND_LBR"
)

// Component names one value of a score.
type Component string

const (
	Main           Component = "MAIN"
	Left           Component = "LEFT"
	Right          Component = "RIGHT"
	Baseline       Component = "BASELINE"
	AreaUnderCurve Component = "AREA_UNDER_CURVE"
)

// Dimension names one vector of a diagram.
type Dimension string

const (
	ForecastProbability       Dimension = "FORECAST_PROBABILITY"
	ObservedRelativeFrequency Dimension = "OBSERVED_RELATIVE_FREQUENCY"
	SampleCount               Dimension = "SAMPLE_SIZE"
	DetectionRate             Dimension = "PROBABILITY_OF_DETECTION"
	FalseDetectionRate        Dimension = "PROBABILITY_OF_FALSE_DETECTION"
	RankOrder                 Dimension = "RANK_ORDER"
)
