package model

import (
	"fmt"
	"strings"
	"time"
)

// LocalTime 以 "YYYY-MM-DD HH:MM:SS" 格式序列化时间，用于管理端列表。
type LocalTime time.Time

const timeFormat = "2006-01-02 15:04:05"

// MarshalJSON implements the json.Marshaler interface.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	formatted := fmt.Sprintf("\"%s\"", time.Time(t).Format(timeFormat))
	return []byte(formatted), nil
}

// UnmarshalJSON 解析同一格式，按本地时区处理。
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), "\"")
	if s == "" || s == "null" {
		*t = LocalTime(time.Time{})
		return nil
	}
	parsed, err := time.ParseInLocation(timeFormat, s, time.Local)
	if err != nil {
		return fmt.Errorf("invalid time %q: %w", s, err)
	}
	*t = LocalTime(parsed)
	return nil
}

func (t LocalTime) String() string {
	return time.Time(t).Format(timeFormat)
}
