package domain

import "strings"

// DefaultReportBaseURL is the monthly, start-of-period, metric CSV view of the
// WCIS custom multiple-station report.
const DefaultReportBaseURL = "https://wcc.sc.egov.usda.gov/reportGenerator/view_csv/customMultipleStationReport,metric/monthly/start_of_period/"

// inServiceFilter keeps stations whose out-of-service date is the open-ended
// sentinel, then sorts by name.
const inServiceFilter = "%20AND%20outServiceDate=%222100-01-01%22%7Cname/"

// BuildURL renders the report URL for req against base. It is a pure function
// of its inputs. The region selector is pre-escaped the way the report
// generator's own links are, so the result must not be re-encoded.
func BuildURL(base string, req Request) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString(regionSelector(req.Region))
	b.WriteString(inServiceFilter)
	b.WriteString(req.Range.String())
	b.WriteByte('/')
	b.WriteString(strings.Join(req.Columns, ","))
	b.WriteString("?fitToScreen=false")
	return b.String()
}

func regionSelector(r Region) string {
	code := r.Code
	if r.Type == RegionHUC {
		code += "*"
	}
	return string(r.Type) + "=%22" + code + "%22"
}
