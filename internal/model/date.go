package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time of day and no zone.  It is
// serialised as "YYYY-MM-DD" in JSON and bound to SQL as the same
// string, which MySQL and PostgreSQL coerce into DATE columns and
// SQLite stores verbatim as TEXT.  The zero value is the unset date.
//
// Date is comparable with == so it can be used directly in equality
// predicates and in tests.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components, normalising overflow the
// same way time.Date does (e.g. 2024-02-30 becomes 2024-03-01).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses exactly "YYYY-MM-DD", ignoring surrounding spaces.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// driverLayouts are the textual forms drivers use for DATE columns.
var driverLayouts = []string{DateLayout, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02 15:04:05Z07:00"}

// parseStoredDate accepts a stored date with or without a time part; the
// time part is discarded.
func parseStoredDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range driverLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid stored date %q", s)
}

// IsZero reports whether d is the unset date.
func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC at the start of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s: expected a quoted string", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.  MySQL with parseTime=true and PostgreSQL
// return time.Time for DATE columns; SQLite returns the stored text.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := parseStoredDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := parseStoredDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case nil:
		return errors.New("cannot scan NULL into model.Date")
	default:
		return fmt.Errorf("cannot scan %T into model.Date", src)
	}
}
