package classify

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"tablehub/domain/profile"
)

// parseGenericDates attempts a locale-tolerant parse of every value,
// returning the instants that parsed (epoch seconds, UTC) and the
// coarsest resolution they share.
//
// Bare numbers are not dates ("2001" is an integer, a year column is
// handled separately), with one exception: 8-digit values are tried as
// compact YYYYMMDD dates.
func parseGenericDates(sample []string) ([]int64, profile.TemporalResolution) {
	var dates []time.Time
	for _, v := range sample {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if reInt.MatchString(v) && len(v) != 8 {
			continue
		}
		if reFloat.MatchString(v) {
			continue
		}
		t, err := dateparse.ParseIn(v, time.UTC)
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}
	return toEpochs(dates), inferResolution(dates)
}

// parseWithResolution parses values at a fixed resolution: a year
// becomes Jan 1 UTC, a month the first of that month, a day that day.
func parseWithResolution(sample []string, res profile.TemporalResolution) []int64 {
	var dates []time.Time
	for _, v := range sample {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		switch res {
		case profile.ResolutionYear:
			dates = append(dates, time.Date(n, 1, 1, 0, 0, 0, 0, time.UTC))
		case profile.ResolutionMonth:
			if n >= 1 && n <= 12 {
				dates = append(dates, time.Date(1, time.Month(n), 1, 0, 0, 0, 0, time.UTC))
			}
		case profile.ResolutionDay:
			if n >= 1 && n <= 31 {
				dates = append(dates, time.Date(1, 1, n, 0, 0, 0, 0, time.UTC))
			}
		}
	}
	return toEpochs(dates)
}

func toEpochs(dates []time.Time) []int64 {
	if len(dates) == 0 {
		return nil
	}
	epochs := make([]int64, len(dates))
	for i, d := range dates {
		epochs[i] = d.Unix()
	}
	return epochs
}

// inferResolution returns the coarsest calendar resolution all dates
// align to, or "" when any carries sub-day precision.
func inferResolution(dates []time.Time) profile.TemporalResolution {
	if len(dates) == 0 {
		return ""
	}
	res := profile.ResolutionYear
	for _, d := range dates {
		if d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 {
			return ""
		}
		if d.Day() != 1 {
			res = profile.ResolutionDay
		} else if d.Month() != time.January && res != profile.ResolutionDay {
			res = profile.ResolutionMonth
		}
	}
	return res
}

// CoarsenToHour zeroes the minute and second of an epoch-seconds
// instant. Temporal coverage is clustered at hourly resolution.
func CoarsenToHour(epoch int64) int64 {
	t := time.Unix(epoch, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Unix()
}
