package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedReport is returned when a report body cannot be parsed.
var ErrMalformedReport = errors.New("malformed report")

// reportDateLayouts are the date renderings seen in report CSVs. Monthly
// reports use "Jan 2017"; the others appear in daily views and hand-made
// fixtures.
var reportDateLayouts = []string{
	"Jan 2006",
	"January 2006",
	"2006-01-02",
	"2006-01",
}

// ParseReport reads a report generator CSV: "#" comment lines, one header row
// with human-readable names, then one record per station and month. Headers
// are renamed with ColumnNameMap. A body with no header yields no rows.
func ParseReport(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedReport, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range NormalizeHeader(header) {
		cols[name] = i
	}
	for _, required := range []string{ColDate, ColStationID} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedReport, required)
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedReport, line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// record gives typed access to one CSV record by normalized column name.
type record struct {
	fields []string
	cols   map[string]int
}

func (r record) text(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// number parses a measurement. Blank cells and absent columns yield nil.
func (r record) number(col string) (*float64, error) {
	s := r.text(col)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %q is not a number", col, s)
	}
	return &v, nil
}

// numberOrZero is number for station attributes, which are never nullable.
func (r record) numberOrZero(col string) (float64, error) {
	v, err := r.number(col)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

func parseRecord(fields []string, cols map[string]int) (Row, error) {
	rec := record{fields: fields, cols: cols}

	stationID := rec.text(ColStationID)
	if stationID == "" {
		return Row{}, fmt.Errorf("column %s: empty", ColStationID)
	}
	date, err := parseReportDate(rec.text(ColDate))
	if err != nil {
		return Row{}, err
	}

	st := Station{
		StationID: stationID,
		Name:      rec.text(ColStationName),
		State:     strings.ToUpper(rec.text(ColState)),
	}
	if st.ElevationFt, err = rec.numberOrZero(ColElevationFt); err != nil {
		return Row{}, err
	}
	if st.Latitude, err = rec.numberOrZero(ColLatitude); err != nil {
		return Row{}, err
	}
	if st.Longitude, err = rec.numberOrZero(ColLongitude); err != nil {
		return Row{}, err
	}

	obs := Observation{
		Key:       ObservationKey(stationID, date),
		StationID: stationID,
		Date:      date,
	}
	measurements := []struct {
		col string
		dst **float64
	}{
		{ColAirTempObsC, &obs.AirTempObsC},
		{ColAirTempAvgC, &obs.AirTempAvgC},
		{ColReservoirVolume, &obs.ReservoirVolumeDam3},
		{ColPrecipitationMM, &obs.PrecipitationMM},
		{ColSnowDepthCM, &obs.SnowDepthCM},
		{ColSnowDensityPct, &obs.SnowDensityPct},
		{ColSnowWaterEquivMM, &obs.SnowWaterEquivMM},
		{ColSnowRainRatio, &obs.SnowRainRatio},
	}
	for _, m := range measurements {
		if *m.dst, err = rec.number(m.col); err != nil {
			return Row{}, err
		}
	}

	return Row{Station: st, Observation: obs}, nil
}

func parseReportDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("column %s: empty", ColDate)
	}
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unrecognized date %q", ColDate, s)
}
