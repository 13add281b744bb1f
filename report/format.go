package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"f0oster/userreport/diff"
	"f0oster/userreport/membership"
)

var reportTemplate = template.Must(template.New("report").Parse(`
<p>Account Reporting: {{.Start}} to {{.End}} ({{.Days}} days)</p>
<ul>
    <li>New Accounts Requested: {{.Counts.Requested}}</li>
        <ul>
            <li>AND in Training Group: {{.Counts.RequestedTraining}}</li>
            <li>AND in Non Training Group: {{.Counts.RequestedNonTraining}}</li>
        </ul>
    <li>New Accounts Accepted: {{.Counts.Accepted}}</li>
        <ul>
            <li>AND in Training Group: {{.Counts.AcceptedTraining}}</li>
            <li>AND in Non Training Group: {{.Counts.AcceptedNonTraining}}</li>
        </ul>
</ul>
`))

type reportData struct {
	Start  string
	End    string
	Days   int
	Counts diff.Counts
}

// Format renders counts for the period [start, end] as an HTML fragment.
func Format(counts diff.Counts, start, end membership.Timestamp, days int) (string, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, reportData{
		Start:  start.String(),
		End:    end.String(),
		Days:   days,
		Counts: counts,
	})
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// DurationDays is the number of whole days between start and end, rounded
// down, so a period that runs backwards by an hour is -1 days.
func DurationDays(start, end membership.Timestamp) int {
	const day = 24 * time.Hour
	d := end.Sub(start.Time)
	days := d / day
	if d%day < 0 {
		days--
	}
	return int(days)
}

func Subject(prefix string, start, end membership.Timestamp) string {
	return fmt.Sprintf("%s: %s to %s", prefix, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
