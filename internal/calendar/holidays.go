package calendar

import "time"

func isHoliday(m Market, d Day) bool {
	switch m {
	case KRX:
		_, ok := krxHolidays[d]
		return ok
	default:
		_, ok := usHolidays[d]
		return ok
	}
}

func holidaySet(days []Day) map[Day]struct{} {
	set := make(map[Day]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}

// NYSE full-day closures.
var usHolidays = holidaySet([]Day{
	{2024, time.January, 1}, {2024, time.January, 15}, {2024, time.February, 19},
	{2024, time.March, 29}, {2024, time.May, 27}, {2024, time.June, 19},
	{2024, time.July, 4}, {2024, time.September, 2}, {2024, time.November, 28},
	{2024, time.December, 25},

	{2025, time.January, 1}, {2025, time.January, 9}, {2025, time.January, 20},
	{2025, time.February, 17}, {2025, time.April, 18}, {2025, time.May, 26},
	{2025, time.June, 19}, {2025, time.July, 4}, {2025, time.September, 1},
	{2025, time.November, 27}, {2025, time.December, 25},

	{2026, time.January, 1}, {2026, time.January, 19}, {2026, time.February, 16},
	{2026, time.April, 3}, {2026, time.May, 25}, {2026, time.June, 19},
	{2026, time.July, 3}, {2026, time.September, 7}, {2026, time.November, 26},
	{2026, time.December, 25},
})

// KRX closures, including substitute holidays.
var krxHolidays = holidaySet([]Day{
	{2025, time.December, 31},

	{2026, time.January, 1}, {2026, time.February, 16}, {2026, time.February, 17},
	{2026, time.February, 18}, {2026, time.March, 2}, {2026, time.May, 1},
	{2026, time.May, 5}, {2026, time.May, 25}, {2026, time.August, 17},
	{2026, time.September, 24}, {2026, time.September, 25}, {2026, time.September, 28},
	{2026, time.October, 5}, {2026, time.October, 9}, {2026, time.December, 25},
	{2026, time.December, 31},
})
