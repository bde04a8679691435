package utils

import "strconv"

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// StrToInt64 converts a string to an int64.
// Returns 0 and an error if the conversion fails.
func StrToInt64(s string) (int64, error) {
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}

// NewNullString is a helper for string pointers, returning nil if the string is empty.
// Useful for optional fields that should be NULL in the database when not provided.
func NewNullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
