package http

import (
	"fmt"

	xutil "PairLab/pkg/util"
)

// ParseTimeRange parses optional startTime/endTime query values.
// Both sides must be set for the range to apply; a single bound is ignored.
func ParseTimeRange(start, end string) (TimeRange, error) {
	if start == "" || end == "" {
		return TimeRange{}, nil
	}
	from, ok := xutil.ParseTime(start)
	if !ok {
		return TimeRange{}, BadRequestErrorf("invalid startTime %q", start).WithParam("field", "startTime")
	}
	to, ok := xutil.ParseTime(end)
	if !ok {
		return TimeRange{}, BadRequestErrorf("invalid endTime %q", end).WithParam("field", "endTime")
	}
	if to.Before(from) {
		return TimeRange{}, BadRequestError(fmt.Sprintf("endTime %s is before startTime %s", end, start))
	}
	return TimeRange{From: &from, To: &to}, nil
}
