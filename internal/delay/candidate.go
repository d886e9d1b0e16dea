package delay

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// FieldState says what a write request carried in its "delay" field.
type FieldState int

const (
	FieldAbsent FieldState = iota
	FieldValue
	FieldInvalid
)

func (s FieldState) String() string {
	switch s {
	case FieldAbsent:
		return "absent"
	case FieldValue:
		return "value"
	case FieldInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Update is a decoded write request. Value is only meaningful when State is FieldValue.
type Update struct {
	State FieldState
	Value int
}

// DecodeUpdate reads a POST body. Anything that is not a JSON object is
// treated as an empty object.
func DecodeUpdate(body []byte) Update {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return Update{State: FieldAbsent}
	}
	raw, ok := doc["delay"]
	if !ok {
		return Update{State: FieldAbsent}
	}
	return UpdateFrom(raw)
}

// UpdateFrom classifies an arbitrary candidate value.
func UpdateFrom(candidate any) Update {
	v, ok := ParseCandidate(candidate)
	if !ok {
		return Update{State: FieldInvalid}
	}
	return Update{State: FieldValue, Value: v}
}

var decimalRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseCandidate converts numbers and numeric strings to an int, truncating
// toward zero and saturating at the int range. Booleans, null, containers and
// non-finite values are rejected.
func ParseCandidate(candidate any) (int, bool) {
	switch t := candidate.(type) {
	case json.RawMessage:
		return parseRaw(t)
	case json.Number:
		return parseNumber(string(t))
	case string:
		s := strings.TrimSpace(t)
		if !decimalRe.MatchString(s) {
			return 0, false
		}
		return parseNumber(s)
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		if t > int64(math.MaxInt) {
			return math.MaxInt, true
		}
		if t < int64(math.MinInt) {
			return math.MinInt, true
		}
		return int(t), true
	case uint:
		return saturateUint(uint64(t))
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return saturateUint(uint64(t))
	case uint64:
		return saturateUint(t)
	case float32:
		return finiteFloat(float64(t))
	case float64:
		return finiteFloat(t)
	default:
		return 0, false
	}
}

func parseRaw(raw json.RawMessage) (int, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	return ParseCandidate(v)
}

func parseNumber(s string) (int, bool) {
	if n, err := strconv.ParseInt(s, 10, 0); err == nil {
		return int(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !isRangeErr(err) {
		return 0, false
	}
	return saturateFloat(f)
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// finiteFloat is for floats handed over directly; numeric text that overflows
// still saturates through parseNumber.
func finiteFloat(f float64) (int, bool) {
	if math.IsInf(f, 0) {
		return 0, false
	}
	return saturateFloat(f)
}

func saturateFloat(f float64) (int, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	// float64(math.MaxInt) rounds up to 2^63, so >= is the overflow test.
	if f >= float64(math.MaxInt) {
		return math.MaxInt, true
	}
	if f <= float64(math.MinInt) {
		return math.MinInt, true
	}
	return int(f), true
}

func saturateUint(u uint64) (int, bool) {
	if u > math.MaxInt {
		return math.MaxInt, true
	}
	return int(u), true
}
