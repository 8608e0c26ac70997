package config

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	kibi = 1024
	mebi = kibi * kibi
	gibi = kibi * mebi
)

// ParseSize parses a byte count with an optional binary k, m or g suffix, e.g. "64k" or "1.5m".
func ParseSize(s string) (int64, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return 0, fmt.Errorf("%w: %q", ErrBadSize, s)
	}
	mul := 1.0
	switch str[len(str)-1] {
	case 'k', 'K':
		mul = kibi
	case 'm', 'M':
		mul = mebi
	case 'g', 'G':
		mul = gibi
	}
	if mul != 1 {
		str = str[:len(str)-1]
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadSize, s)
	}
	v *= mul
	if v < 1 || v > 1<<62 {
		return 0, fmt.Errorf("%w: %q", ErrBadSize, s)
	}
	return int64(v), nil
}
