package scraper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/beekhof/shift-sync/internal/syncerr"
)

// Shift is one scheduled work period. Start and End are the site's local
// wall-clock timestamps, copied verbatim (e.g. "2024-01-10T09:00:00").
type Shift struct {
	JobType string `json:"job_type"`
	Details string `json:"details"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// RawShiftPayload is one page of the site's "my schedules" response.
type RawShiftPayload struct {
	HasUnpostedShifts *bool    `json:"hasUnpostedShifts"`
	NetScheduledHours *float64 `json:"netScheduledHours"`
	Days              []Day    `json:"days"`
}

type Day struct {
	PayScheduledShifts []ScheduledShift `json:"payScheduledShifts"`
}

type ScheduledShift struct {
	Job struct {
		Name string `json:"name"`
	} `json:"job"`
	ScheduleDetails []ScheduleDetail `json:"scheduleDetails"`
	Start           string           `json:"start"`
	End             string           `json:"end"`
}

// ScheduleDetail is a segment of a shift, such as work or a meal break.
type ScheduleDetail struct {
	DetailType string `json:"detailType"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// DecodePayload parses a schedule response body.
func DecodePayload(body []byte) (*RawShiftPayload, error) {
	var p RawShiftPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: malformed schedule JSON: %w", syncerr.ErrDataIntegrity, err)
	}
	if (p.HasUnpostedShifts == nil || !*p.HasUnpostedShifts) && p.NetScheduledHours == nil {
		return nil, fmt.Errorf("%w: schedule JSON has neither hasUnpostedShifts nor netScheduledHours", syncerr.ErrDataIntegrity)
	}
	return &p, nil
}

// Terminal reports whether this page marks the end of the published
// schedule. Terminal pages carry no usable shifts.
func (p *RawShiftPayload) Terminal() bool {
	if p.HasUnpostedShifts != nil && *p.HasUnpostedShifts {
		return true
	}
	return p.NetScheduledHours != nil && *p.NetScheduledHours == 0
}

// Shifts flattens every scheduled shift of every day.
func (p *RawShiftPayload) Shifts() ([]Shift, error) {
	var shifts []Shift
	for d, day := range p.Days {
		for s, pss := range day.PayScheduledShifts {
			if pss.Start == "" || pss.End == "" {
				return nil, fmt.Errorf("%w: day %d shift %d (%q) is missing start or end", syncerr.ErrDataIntegrity, d, s, pss.Job.Name)
			}
			shifts = append(shifts, Shift{
				JobType: pss.Job.Name,
				Details: formatDetails(pss.ScheduleDetails),
				Start:   pss.Start,
				End:     pss.End,
			})
		}
	}
	return shifts, nil
}

// formatDetails renders one "Type: 09:00:00 - 13:00:00" line per detail.
func formatDetails(details []ScheduleDetail) string {
	lines := make([]string, 0, len(details))
	for _, d := range details {
		lines = append(lines, d.DetailType+": "+clockOf(d.Start)+" - "+clockOf(d.End))
	}
	return strings.Join(lines, "\n")
}

// clockOf returns the time-of-day part of a timestamp.
func clockOf(ts string) string {
	if i := strings.LastIndex(ts, "T"); i >= 0 {
		return ts[i+1:]
	}
	return ts
}
