package listutil

import (
	"fmt"
	"net/url"
	"strconv"
)

// OffsetParams carries skip/limit pagination parsed from a request.
type OffsetParams struct {
	Skip  int // rows to skip from the start of the ordered sequence
	Limit int // maximum rows to return
}

// DefaultLimit is the number of rows returned when limit is omitted.
const DefaultLimit = 100

// DefaultMaxLimit caps limit when the caller passes no cap of their own.
const DefaultMaxLimit = 1000

// ParamError reports a query parameter that is not a non-negative integer.
type ParamError struct {
	Param string
	Value string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("query parameter %q must be a non-negative integer, got %q", e.Param, e.Value)
}

// ParseOffsetParams extracts skip and limit from URL query values.
// PRE: maxLimit > 0, or <= 0 to use DefaultMaxLimit
// POST: returns params with defaults applied and Limit clamped to maxLimit,
// or a *ParamError for a malformed value
func ParseOffsetParams(q url.Values, maxLimit int) (OffsetParams, error) {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	skip, err := parseNonNegative(q, "skip", 0)
	if err != nil {
		return OffsetParams{}, err
	}
	limit, err := parseNonNegative(q, "limit", DefaultLimit)
	if err != nil {
		return OffsetParams{}, err
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return OffsetParams{Skip: skip, Limit: limit}, nil
}

func parseNonNegative(q url.Values, key string, def int) (int, error) {
	raw, ok := q[key]
	if !ok || len(raw) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(raw[0])
	if err != nil || n < 0 {
		return 0, &ParamError{Param: key, Value: raw[0]}
	}
	return n, nil
}
