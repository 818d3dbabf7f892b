// Package domain models monthly snowpack and climate readings published by the
// NRCS Water and Climate Information System (WCIS), the reporting front end of
// the SNOTEL snow-telemetry network.
//
// # Data Source
//
// Readings come from the WCIS report generator, which renders a custom
// multiple-station report as CSV for a region selector, a date range and a
// list of element columns. One request returns one row per station per month.
//
// # Report Generator Conventions
//
// Region selector:
//
//	huc=%2216050101*%22    all stations whose HUC starts with 16050101
//	state=%22CA%22         all stations in California
//
// HUC (Hydrologic Unit Code) selectors are prefix matches, so the code is
// suffixed with "*". Both selectors are ANDed with outServiceDate=2100-01-01,
// which keeps only stations that are still in service.
//
// Date range:
//
//	"<start>,<end>" in YYYY-MM-DD, both ends inclusive. The service rejects
//	windows longer than a year, so long ranges are split into slices of at
//	most twelve months (see [SliceRange]).
//
// Element columns:
//
//	"TOBS::value" is the observed air temperature, "WTEQ::value" the snow
//	water equivalent, and so on. Header names in the CSV are human-readable
//	("Snow Water Equivalent (mm) Start of Month Values") and are renamed with
//	[ColumnNameMap].
//
// Comments:
//
//	The CSV body starts with a block of "#"-prefixed lines describing the
//	query. They are skipped before the header row.
//
// Blank cells:
//
//	Stations that do not carry a sensor leave its column empty. Empty cells
//	become nil measurements rather than zero.
//
// # Region Overlap
//
// The default request set covers two Lake Tahoe/Truckee watersheds plus the
// whole of California. The watersheds straddle the Nevada line, so their
// reports also carry Nevada stations. [RegionFilter] keeps only California
// rows from every request that is not the California request itself.
// California watershed rows are also returned by the state request; their
// observation keys collide, so the second write is skipped as a duplicate.
//
// # Document Keys
//
// Stations are keyed by their WCIS station ID. Observations and edges are
// keyed by a deterministic hash of station ID and month (see
// [ObservationKey]), so reloading an overlapping date range does not
// duplicate documents.
package domain
