package graphql

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var Int = &Scalar{
	Name:        "Int",
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
	Serialize:   serializeInt,
}

var Float = &Scalar{
	Name:        "Float",
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
	Serialize:   serializeFloat,
}

var String = &Scalar{
	Name:        "String",
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
	Serialize:   serializeString,
}

var Boolean = &Scalar{
	Name:        "Boolean",
	Description: "The `Boolean` scalar type represents `true` or `false`.",
	Serialize:   serializeBoolean,
}

var ID = &Scalar{
	Name:        "ID",
	Description: "The `ID` scalar type represents a unique identifier.",
	Serialize:   serializeID,
}

var builtinScalars = []*Scalar{Int, Float, String, Boolean, ID}

// Date is an RFC 3339 full-date such as 2020-12-19.
var Date = &Scalar{
	Name:        "Date",
	Description: "An RFC-3339 compliant full date scalar",
	Serialize:   timeSerializer("Date", dateLayout, dateLayout),
	ParseValue:  timeParser("Date", dateLayout),
}

// DateTime is an RFC 3339 date-time with offset.
var DateTime = &Scalar{
	Name:        "DateTime",
	Description: "An RFC-3339 compliant DateTime scalar",
	Serialize:   timeSerializer("DateTime", time.RFC3339Nano, time.RFC3339Nano),
	ParseValue:  timeParser("DateTime", time.RFC3339Nano),
}

// Time is an RFC 3339 full-time with offset such as 16:39:57-08:00.
var Time = &Scalar{
	Name:        "Time",
	Description: "An RFC-3339 compliant Full Time scalar",
	Serialize:   timeSerializer("Time", offsetTimeLayout, offsetTimeLayout),
	ParseValue:  timeParser("Time", offsetTimeLayout),
}

// JSON accepts and returns any JSON value unchanged.
var JSON = &Scalar{
	Name:        "JSON",
	Description: "A JSON scalar",
}

// LocalDateTime is a date-time without offset. Seconds may be omitted on
// input and are always present on output.
var LocalDateTime = &Scalar{
	Name:        "LocalDateTime",
	Description: "Local Date Time type",
	Serialize:   timeSerializer("LocalDateTime", localDateTimeLayout, localDateTimeLayout, localDateTimeMinutesLayout),
	ParseValue:  timeParser("LocalDateTime", localDateTimeLayout, localDateTimeMinutesLayout),
}

// LocalTime is a time of day without offset. Seconds may be omitted on input
// and are always present on output.
var LocalTime = &Scalar{
	Name:        "LocalTime",
	Description: "Local Time type",
	Serialize:   timeSerializer("LocalTime", localTimeLayout, localTimeLayout, localTimeMinutesLayout),
	ParseValue:  timeParser("LocalTime", localTimeLayout, localTimeMinutesLayout),
}

const (
	dateLayout                 = "2006-01-02"
	offsetTimeLayout           = "15:04:05.999999999Z07:00"
	localDateTimeLayout        = "2006-01-02T15:04:05.999999999"
	localDateTimeMinutesLayout = "2006-01-02T15:04"
	localTimeLayout            = "15:04:05.999999999"
	localTimeMinutesLayout     = "15:04"
)

// timeSerializer formats time.Time values with output and normalizes strings
// accepted by any of the input layouts.
func timeSerializer(name, output string, inputs ...string) func(any) (any, error) {
	return func(value any) (any, error) {
		switch v := value.(type) {
		case time.Time:
			return v.Format(output), nil
		case *time.Time:
			if v == nil {
				return nil, nil
			}
			return v.Format(output), nil
		case string:
			t, err := parseTime(name, v, inputs...)
			if err != nil {
				return nil, err
			}
			return t.Format(output), nil
		}
		return nil, fmt.Errorf("%s cannot serialize value of type %T", name, value)
	}
}

func timeParser(name string, layouts ...string) func(any) (any, error) {
	return func(value any) (any, error) {
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			return parseTime(name, v, layouts...)
		}
		return nil, fmt.Errorf("%s cannot parse value of type %T", name, value)
	}
}

func parseTime(name, s string, layouts ...string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s value '%s'", name, s)
}

func serializeInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %q", v)
		}
		n = i
	case float32:
		return serializeInt(float64(v))
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", v)
		}
		n = int64(v)
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if rv.Uint() > math.MaxInt32 {
				return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", value)
			}
			n = int64(rv.Uint())
		default:
			return nil, fmt.Errorf("Int cannot represent value of type %T", value)
		}
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
	}
	return int(n), nil
}

func serializeFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("Float cannot represent non numeric value: %q", v)
		}
		return f, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("Float cannot represent value of type %T", value)
}

func serializeString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("String cannot represent value of type %T", value)
}

func serializeBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %q", v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("Boolean cannot represent value of type %T", value)
}

func serializeID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	}
	return nil, fmt.Errorf("ID cannot represent value of type %T", value)
}
