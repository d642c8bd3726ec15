package scripted

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/getmockd/soapd/pkg/soap"
)

// ToValue converts an expression result into a value of the given kind.
// Integral floats are accepted for integer kinds; nil yields the zero value.
func ToValue(res any, kind soap.Kind) (soap.Value, error) {
	switch r := res.(type) {
	case nil:
		return soap.Zero(kind), nil
	case soap.Value:
		if r.Kind() == kind {
			return r, nil
		}
		return soap.ParseValue(kind, soap.Lexical(r))
	case []byte:
		switch kind {
		case soap.KindBase64Binary:
			return soap.Base64(r), nil
		case soap.KindHexBinary:
			return soap.Hex(r), nil
		}
		return soap.ParseValue(kind, string(r))
	case time.Time:
		return soap.ParseValue(kind, formatTime(r, kind))
	case time.Duration:
		return soap.ParseValue(kind, formatDuration(r, kind))
	}

	lexical, err := lexicalOf(res, kind)
	if err != nil {
		return soap.Value{}, err
	}
	return soap.ParseValue(kind, lexical)
}

func lexicalOf(res any, kind soap.Kind) (string, error) {
	switch r := res.(type) {
	case string:
		return r, nil
	case bool:
		return strconv.FormatBool(r), nil
	case int:
		return strconv.Itoa(r), nil
	case int8, int16, int32, int64:
		return fmt.Sprint(r), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(r), nil
	case float32:
		return formatFloat(float64(r), kind)
	case float64:
		return formatFloat(r, kind)
	case fmt.Stringer:
		return r.String(), nil
	}
	return "", fmt.Errorf("cannot convert %T to %s", res, soap.TypeName(soap.Zero(kind)))
}

func formatFloat(f float64, kind soap.Kind) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%v is not a finite number", f)
	}
	if kind != soap.KindDecimal && !kind.IsStringLike() && kind != soap.KindBoolean {
		if f != math.Trunc(f) {
			return "", fmt.Errorf("%v is not an integer", f)
		}
		return strconv.FormatFloat(f, 'f', 0, 64), nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func formatTime(t time.Time, kind soap.Kind) string {
	switch kind {
	case soap.KindDate:
		return t.Format(time.DateOnly)
	case soap.KindTime:
		return t.Format("15:04:05Z07:00")
	}
	return t.Format(time.RFC3339Nano)
}

// formatDuration renders d as an xsd:duration, e.g. PT1H2M3.5S, unless the
// target is numeric, in which case it is a count of seconds.
func formatDuration(d time.Duration, kind soap.Kind) string {
	if kind != soap.KindDuration && !kind.IsStringLike() {
		return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	}
	if d == 0 {
		return "PT0S"
	}
	var out []byte
	if d < 0 {
		out = append(out, '-')
		d = -d
	}
	out = append(out, 'P', 'T')
	if h := d / time.Hour; h > 0 {
		out = strconv.AppendInt(out, int64(h), 10)
		out = append(out, 'H')
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		out = strconv.AppendInt(out, int64(m), 10)
		out = append(out, 'M')
		d -= m * time.Minute
	}
	if d > 0 {
		out = strconv.AppendFloat(out, d.Seconds(), 'f', -1, 64)
		out = append(out, 'S')
	}
	return string(out)
}
