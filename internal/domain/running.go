package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ScaffoldDays is the number of zero-valued days seeded into a brand new log.
const ScaffoldDays = 30

// DailyRecord is one day of running in a user's log. Speed is always derived.
type DailyRecord struct {
	Day      string  `json:"day"`
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
	Speed    float64 `json:"speed"`
	Year     int     `json:"year"`
	Month    int     `json:"month"`
}

// UserRunningLog is the persisted per-user array of daily records.
type UserRunningLog struct {
	UserID    string        `json:"userId"`
	DailyData []DailyRecord `json:"dailyData"`
}

// DailyRecordInput is an incoming partial record. Nil fields keep the stored value.
type DailyRecordInput struct {
	Day      string
	Distance *float64
	Time     *float64
	Year     *int
	Month    *int
}

// MonthlyDistance is the summed distance for one calendar month name.
type MonthlyDistance struct {
	Month    string  `json:"month"`
	Distance float64 `json:"distance"`
}

// UserStats summarises a running log.
type UserStats struct {
	Lifetime    float64           `json:"lifetime"`
	LongestRun  float64           `json:"longestRun"`
	MonthlyData []MonthlyDistance `json:"monthlyData"`
	DailyData   []DailyRecord     `json:"dailyData"`
}

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthName maps a 1-based month to its short English name. Out of range
// values roll over the way a calendar does (0 is Dec, 13 is Jan).
func MonthName(month int) string {
	idx := ((month-1)%12 + 12) % 12
	return monthNames[idx]
}

// DeriveSpeed returns km/h for a distance in km covered in the given minutes.
func DeriveSpeed(distance, minutes float64) float64 {
	if minutes == 0 {
		return 0
	}
	return distance / (minutes / 60)
}

// NewScaffold builds the default log for a user with no prior data.
func NewScaffold(now time.Time) []DailyRecord {
	out := make([]DailyRecord, 0, ScaffoldDays)
	for day := 1; day <= ScaffoldDays; day++ {
		out = append(out, DailyRecord{
			Day:   strconv.Itoa(day),
			Year:  now.Year(),
			Month: int(now.Month()),
		})
	}
	return out
}

// MergeDailyRecords applies incoming records on top of a copy of base.
// Each day is replaced in place when present, appended otherwise; base is
// never mutated.
func MergeDailyRecords(base []DailyRecord, incoming []DailyRecordInput, now time.Time) []DailyRecord {
	merged := make([]DailyRecord, len(base), len(base)+len(incoming))
	copy(merged, base)

	for _, in := range incoming {
		idx := indexOfDay(merged, in.Day)
		current := DailyRecord{Day: in.Day, Year: now.Year(), Month: int(now.Month())}
		if idx >= 0 {
			current = merged[idx]
		}

		record := in.applyTo(current)
		if idx >= 0 {
			merged[idx] = record
		} else {
			merged = append(merged, record)
		}
	}
	return merged
}

func (in DailyRecordInput) applyTo(current DailyRecord) DailyRecord {
	out := current
	out.Day = in.Day
	if in.Distance != nil {
		out.Distance = *in.Distance
	}
	if in.Time != nil {
		out.Time = *in.Time
	}
	if in.Year != nil {
		out.Year = *in.Year
	}
	if in.Month != nil {
		out.Month = *in.Month
	}
	out.Speed = DeriveSpeed(out.Distance, out.Time)
	return out
}

func indexOfDay(records []DailyRecord, day string) int {
	for i := range records {
		if records[i].Day == day {
			return i
		}
	}
	return -1
}

// ComputeStats aggregates a log. now decides which entries count as the
// current month.
func ComputeStats(records []DailyRecord, now time.Time) UserStats {
	stats := UserStats{
		MonthlyData: make([]MonthlyDistance, 0),
		DailyData:   make([]DailyRecord, 0),
	}

	groups := make(map[string]int)
	currentMonth := int(now.Month())
	for i, rec := range records {
		stats.Lifetime += rec.Distance
		if i == 0 || rec.Distance > stats.LongestRun {
			stats.LongestRun = rec.Distance
		}

		name := MonthName(rec.Month)
		if idx, ok := groups[name]; ok {
			stats.MonthlyData[idx].Distance += rec.Distance
		} else {
			groups[name] = len(stats.MonthlyData)
			stats.MonthlyData = append(stats.MonthlyData, MonthlyDistance{Month: name, Distance: rec.Distance})
		}

		if rec.Month == currentMonth {
			stats.DailyData = append(stats.DailyData, rec)
		}
	}
	return stats
}

func validateMergeInput(userID string, incoming []DailyRecordInput) error {
	if strings.TrimSpace(userID) == "" {
		return NewValidationError("userId", "is required")
	}
	if incoming == nil {
		return NewValidationError("dailyData", "must be an array")
	}
	for i, in := range incoming {
		if strings.TrimSpace(in.Day) == "" {
			return NewValidationError("dailyData["+strconv.Itoa(i)+"].day", "is required")
		}
	}
	return nil
}

// checkFinite rejects records whose distance, time or derived speed cannot
// be represented in JSON, such as a huge distance over a near-zero time.
func checkFinite(records []DailyRecord) error {
	for _, rec := range records {
		field := ""
		switch {
		case !isFinite(rec.Distance):
			field = "distance"
		case !isFinite(rec.Time):
			field = "time"
		case !isFinite(rec.Speed):
			field = "speed"
		}
		if field != "" {
			return NewValidationError(field, fmt.Sprintf("for day %s is not a finite number", rec.Day))
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
