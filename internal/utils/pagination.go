// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// Page size bounds shared by every paginated listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageParams parses raw page and page_size values. Missing or malformed
// values fall back to page 1 and DefaultPageSize; page is at least 1 and
// size is clamped to [1, MaxPageSize].
func PageParams(rawPage, rawSize string) (page, size int) {
	page = atoiDefault(rawPage, 1)
	if page < 1 {
		page = 1
	}
	size = atoiDefault(rawSize, DefaultPageSize)
	switch {
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

// Offset returns the number of rows before page.
func Offset(page, size int) int { return (page - 1) * size }

// TotalPages returns how many pages of size hold total rows.
func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
