package browserkit

import (
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ------------------------------------------------------------------------

// StrToUInt converts a string to an unsigned integer.
func StrToUInt(str string) (uint, error) {
	i, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("StrToUInt: %w", err)
	}
	if i < 0 {
		return 0, fmt.Errorf("StrToUInt: parsing %q: value must be positive or zero", str)
	}

	return uint(i), nil
}

// ------------------------------------------------------------------------

// StrToBool converts a string to boolean.
func StrToBool(str string) (val bool, err error) {
	switch strings.TrimSpace(strings.ToLower(str)) {
	case "1", "yes", "true", "y":
		val = true
	case "0", "no", "false", "n":
		val = false
	default:
		err = fmt.Errorf("StrToBool: unable to convert %q to boolean", str)
	}

	return val, err
}

// ------------------------------------------------------------------------

// ContainsAny reports whether any of substr is within s.
func ContainsAny(s string, substr ...string) bool {
	for _, sub := range substr {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// ------------------------------------------------------------------------

// RandomString returns a random hex-encoded string of the given byte length,
// used for multipart boundaries and similar throwaway tokens.
func RandomString(n uint) string {
	buf := make([]byte, int(n))

	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return ""
	}

	return fmt.Sprintf("%x", buf)
}
