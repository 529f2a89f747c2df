package utils

import "strconv"

// ParseID parses a positive decimal identifier such as a path parameter.
// Signs, whitespace and zero are rejected.
//
// Example:
//
//	id, ok := utils.ParseID("42") // 42, true
//	_, ok = utils.ParseID("0")    // 0, false
//	_, ok = utils.ParseID("+1")   // 0, false
func ParseID(s string) (uint64, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
