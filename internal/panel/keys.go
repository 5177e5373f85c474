package panel

import (
	"github.com/jpalmerr/vitalboard/pipeline"
	"github.com/jpalmerr/vitalboard/record"
)

// Store keys shared by the panels of one scope.
const (
	// KeyDataVizData holds map[string][]record.Record: every fetched month
	// keyed by record.Period.Key.
	KeyDataVizData = "dataVizData"

	// KeyYearsAndMonths holds []record.YearMonths from the periods listing.
	KeyYearsAndMonths = "yearsAndMonths"

	// KeyYears holds []int, the years with data.
	KeyYears = "years"

	// KeyYearSelected holds the selected year as an int.
	KeyYearSelected = "yearSelected"

	// KeyMonths holds []int, the months with data in the selected year.
	KeyMonths = "months"

	// KeyMonthSelected holds the selected month (1-12) as an int.
	KeyMonthSelected = "monthSelected"

	// KeyFetching holds true while the selected month is being fetched.
	KeyFetching = "fetchingDataVizData"

	// KeySelectedData holds []record.Record for the selected month.
	KeySelectedData = "selectedDataVizData"

	// KeyContextSelected holds the selected build context or metric.
	KeyContextSelected = "contextSelected"

	// KeySelectedContextData holds the [ContextData] derived for the
	// selected context and frame.
	KeySelectedContextData = "selectedContextData"

	// KeyFrameSelected holds the selected vitals frame (see Frame*).
	KeyFrameSelected = "frameSelected"

	// KeyFrameLoaded is set when a frame's panels are mounted.
	KeyFrameLoaded = "frameLoaded"
)

// Vitals frames.
const (
	FrameDaily     = "daily"
	FrameFrequency = "frequency"
	FramePages     = "pages"
)

// Frames lists the valid vitals frames.
var Frames = []string{FrameDaily, FrameFrequency, FramePages}

// BuildContexts lists the build contexts shown on a builds dashboard.
var BuildContexts = []string{"production", "deploy-preview", "cms"}

var labels = map[string]string{
	"production":     "Production",
	"deploy-preview": "Deploy preview",
	"cms":            "CMS",
	"lcp":            "LCP",
	"fid":            "FID",
	"cls":            "CLS",
}

// Label returns the display label for a context, or the context itself.
func Label(context string) string {
	if l, ok := labels[context]; ok {
		return l
	}
	return context
}

// ContextData is the selected month's data for one context, shaped for the
// current frame. Builds use Builds; vitals use one of Daily, Frequency or
// Pages according to Frame.
type ContextData struct {
	Kind      string                `json:"kind"`
	Context   string                `json:"context"`
	Frame     string                `json:"frame,omitempty"`
	Builds    []record.Record       `json:"builds,omitempty"`
	Daily     []pipeline.DailyPoint `json:"daily,omitempty"`
	Frequency []float64             `json:"frequency,omitempty"`
	Pages     []pipeline.PageGroup  `json:"pages,omitempty"`
}

// Values returns the plotted values of the data.
func (c ContextData) Values() []float64 {
	switch {
	case c.Kind == record.KindBuilds:
		return pipeline.Values(c.Builds)
	case c.Frame == FrameFrequency:
		return append([]float64(nil), c.Frequency...)
	case c.Frame == FramePages:
		out := make([]float64, len(c.Pages))
		for i, p := range c.Pages {
			out[i] = p.Value
		}
		return out
	default:
		out := make([]float64, len(c.Daily))
		for i, p := range c.Daily {
			out[i] = p.Value
		}
		return out
	}
}
