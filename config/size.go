package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Size is a number of bytes which can be written in configuration files in a
// human-readable form such as "6KiB", "32KB" or "1 MiB".
type Size uint64

// Common sizes.
const (
	Byte     Size = 1
	Kilobyte Size = 1024 * Byte
	Megabyte Size = 1024 * Kilobyte
)

// ParseSize parses a human-readable size. Plain numbers are bytes.
func ParseSize(s string) (Size, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return Size(n), nil
}

// Bytes returns the size as an int, saturating on overflow.
func (s Size) Bytes() int {
	const maxInt = int(^uint(0) >> 1)
	if uint64(s) > uint64(maxInt) {
		return maxInt
	}
	return int(s)
}

func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// MarshalYAML writes the size in its human-readable form.
func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}
