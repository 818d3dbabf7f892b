package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegionType selects how the report generator scopes stations.
type RegionType string

const (
	RegionHUC   RegionType = "huc"
	RegionState RegionType = "state"
)

// DateLayout is the YYYY-MM-DD form used in report URLs and logs.
const DateLayout = "2006-01-02"

// MaxSliceMonths is the widest window the report generator accepts.
const MaxSliceMonths = 12

var (
	ErrInvalidRange  = errors.New("invalid date range")
	ErrInvalidRegion = errors.New("invalid region")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Region identifies a set of stations: a watershed prefix or a state.
type Region struct {
	Type RegionType `json:"type" validate:"required,oneof=huc state"`
	Code string     `json:"code" validate:"required,alphanum"`
}

func (r Region) String() string {
	return string(r.Type) + ":" + r.Code
}

// DefaultRegions is the request set for the Sierra Nevada drought study: the
// Lake Tahoe and Truckee River watersheds plus every California station.
var DefaultRegions = []Region{
	{Type: RegionHUC, Code: "16050101"},
	{Type: RegionHUC, Code: "16050102"},
	{Type: RegionState, Code: "CA"},
}

// ParseRegion parses "huc:16050101" or "state:CA".
func ParseRegion(s string) (Region, error) {
	kind, code, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Region{}, fmt.Errorf("%w: %q: want <type>:<code>", ErrInvalidRegion, s)
	}
	r := Region{Type: RegionType(strings.ToLower(strings.TrimSpace(kind))), Code: strings.TrimSpace(code)}
	if r.Type == RegionState {
		r.Code = strings.ToUpper(r.Code)
	}
	if err := validate.Struct(r); err != nil {
		return Region{}, fmt.Errorf("%w: %q: %v", ErrInvalidRegion, s, err)
	}
	return r, nil
}

// ParseRegions parses a comma-separated region list.
func ParseRegions(s string) ([]Region, error) {
	var regions []Region
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := ParseRegion(part)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: empty region list", ErrInvalidRegion)
	}
	return regions, nil
}

// FormatRegions renders regions in the form ParseRegions accepts.
func FormatRegions(regions []Region) string {
	parts := make([]string, len(regions))
	for i, r := range regions {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// DateRange is an inclusive span of calendar days in UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange truncates both ends to midnight UTC and checks their order.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange,
			r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return r, nil
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	return NewDateRange(s, e)
}

// String renders the range the way the report generator expects it.
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + "," + r.End.Format(DateLayout)
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// DefaultDateRange runs from the end of the 2012-2016 drought to the load date
// of the original study.
var DefaultDateRange = DateRange{
	Start: time.Date(2017, time.April, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2021, time.May, 16, 0, 0, 0, 0, time.UTC),
}

// SliceRange splits rng into consecutive windows of at most months months,
// anchored at rng.Start. Window i spans [Start+i*months, Start+(i+1)*months-1d],
// with the last window clipped to rng.End.
func SliceRange(rng DateRange, months int) ([]DateRange, error) {
	if months < 1 {
		return nil, fmt.Errorf("%w: slice size %d months", ErrInvalidRange, months)
	}
	if rng.End.Before(rng.Start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange,
			rng.End.Format(DateLayout), rng.Start.Format(DateLayout))
	}

	var slices []DateRange
	for i := 0; ; i++ {
		floor := rng.Start.AddDate(0, i*months, 0)
		if floor.After(rng.End) {
			break
		}
		ceil := rng.Start.AddDate(0, (i+1)*months, -1)
		if ceil.After(rng.End) {
			ceil = rng.End
		}
		slices = append(slices, DateRange{Start: floor, End: ceil})
	}
	return slices, nil
}

// DefaultColumns are the element columns requested from the report generator.
var DefaultColumns = []string{
	"stationId",
	"name",
	"state.code",
	"elevation",
	"latitude",
	"longitude",
	"TOBS::value",
	"TAVG::value",
	"RESC::value",
	"PREC::value",
	"SNWD::value",
	"SNDN::value",
	"WTEQ::value",
	"SNRR::value",
}

// Request is one report-generator query.
type Request struct {
	Region  Region    `json:"region"`
	Range   DateRange `json:"date_range"`
	Columns []string  `json:"columns" validate:"min=1,dive,required"`
}

// Validate checks the region, the column list and the window width.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid request %s: %w", r, err)
	}
	if r.Range.End.Before(r.Range.Start) {
		return fmt.Errorf("invalid request %s: %w", r, ErrInvalidRange)
	}
	if !r.Range.Start.AddDate(0, MaxSliceMonths, 0).After(r.Range.End) {
		return fmt.Errorf("invalid request %s: %w: window wider than %d months",
			r, ErrInvalidRange, MaxSliceMonths)
	}
	return nil
}

func (r Request) String() string {
	return r.Region.String() + " " + r.Range.String()
}

// NewRequests returns one request per slice of rng for a single region.
// A nil cols uses DefaultColumns.
func NewRequests(region Region, rng DateRange, months int, cols []string) ([]Request, error) {
	if cols == nil {
		cols = DefaultColumns
	}
	slices, err := SliceRange(rng, months)
	if err != nil {
		return nil, err
	}
	reqs := make([]Request, 0, len(slices))
	for _, s := range slices {
		reqs = append(reqs, Request{
			Region:  region,
			Range:   s,
			Columns: append([]string(nil), cols...),
		})
	}
	return reqs, nil
}

// DefineRequests builds the full request plan: every region in order, each
// sliced over rng.
func DefineRequests(regions []Region, rng DateRange, months int, cols []string) ([]Request, error) {
	var reqs []Request
	for _, region := range regions {
		rs, err := NewRequests(region, rng, months, cols)
		if err != nil {
			return nil, fmt.Errorf("define requests for %s: %w", region, err)
		}
		reqs = append(reqs, rs...)
	}
	return reqs, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
