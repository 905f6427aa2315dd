package finance

import "time"

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// NextRunTime returns when a report with frequency f runs next after now.
// Weekly runs fall on the next Monday, monthly on the 1st of next month and
// quarterly on the first day of the next quarter. Unknown frequencies run daily.
func NextRunTime(f Frequency, now time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		// Monday counts as day 0; a Monday yields the following Monday.
		daysAhead := 7 - (int(now.Weekday())+6)%7
		return now.AddDate(0, 0, daysAhead)
	case FrequencyMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	case FrequencyQuarterly:
		nextQuarterMonth := ((int(now.Month())-1)/3+1)*3 + 1
		year := now.Year()
		if nextQuarterMonth > 12 {
			nextQuarterMonth = 1
			year++
		}
		return time.Date(year, time.Month(nextQuarterMonth), 1, 0, 0, 0, 0, now.Location())
	}
	return now.AddDate(0, 0, 1)
}
