// Package report renders resolver results for the command line and HTTP
// front ends.
package report

import "github.com/twpayne/go-geofeatures"

// A Report is a Result with its notice and recorded errors as strings.
type Report struct {
	*geofeatures.Result
	Elevation Elevation `json:"elevation"`
	Notice    string    `json:"notice,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
}

// An Elevation is an ElevationResult whose elevation is only reported when it
// is a value. Over water the notice is reported instead.
type Elevation struct {
	*geofeatures.ElevationResult
	Elevation *int64 `json:"elevation,omitempty"`
}

func New(result *geofeatures.Result) *Report {
	r := &Report{
		Result: result,
		Elevation: Elevation{
			ElevationResult: &result.Elevation,
		},
		Notice: result.Elevation.Status.Notice(),
	}
	if value, ok := result.Elevation.Value(); ok {
		r.Elevation.Elevation = &value
	}
	for _, err := range result.Elevation.Errors {
		r.Errors = append(r.Errors, "elevation: "+err.Error())
	}
	for _, feature := range result.Climate {
		for _, err := range feature.Errors {
			r.Errors = append(r.Errors, feature.ID+": "+err.Error())
		}
	}
	return r
}
