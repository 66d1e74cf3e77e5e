package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/araddon/dateparse"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// ContainsString returns true iff the provided string slice hay contains
// string needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// RandomAlphabetString generates a random lowercase string of length n.
func RandomAlphabetString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// ParseTimestamp parses the loosely formatted timestamps the API and the
// fallback generator emit. Server rows carry RFC3339, synthetic rows carry
// things like "just now", so unparsable input is reported back instead of
// guessed at.
func ParseTimestamp(s string) (time.Time, error) {
	return dateparse.ParseAny(s)
}

// RelativeTime renders a timestamp the way the feed UI shows it ("5m", "2h",
// "3d"). Unparsable timestamps are returned as-is, which keeps synthetic
// "just now" rows readable.
func RelativeTime(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return s
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
