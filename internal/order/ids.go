package order

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newSlug returns the first six hex digits of a random UUID.
func newSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// newTrackingNo returns three dash-separated groups of three characters, e.g. "K7Q-2ZD-91A".
func newTrackingNo() string {
	var b strings.Builder
	for g := 0; g < 3; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < 3; i++ {
			b.WriteByte(trackingAlphabet[rand.Intn(len(trackingAlphabet))])
		}
	}
	return b.String()
}
