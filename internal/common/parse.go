package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseUint64orHex converts the given uint64 string into the number.
// It can parse the string with 0x prefix as well.
func ParseUint64orHex(val *string) (uint64, error) {
	if val == nil {
		return 0, nil
	}

	str := *val
	base := 10

	if strings.HasPrefix(str, "0x") {
		str = str[2:]
		base = 16
	}

	return strconv.ParseUint(str, base, 64)
}

// ParseSecondsOrDuration reads a plain integer as a number of seconds,
// anything else as a Go duration string.
func ParseSecondsOrDuration(val string) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if secs, err := strconv.ParseUint(val, 10, 32); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("expected seconds or a duration, got %q", val)
	}
	return d, nil
}

const bytesInMB = 1024 * 1024

func BytesToMB(bytes uint64) uint64 {
	return bytes / bytesInMB
}

func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
