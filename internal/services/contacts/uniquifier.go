package contacts

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// Uniquifier makes submitted emails unique per run by inserting
// "+<runID><seq>" before the last '@'
type Uniquifier struct {
	runID string
	seq   atomic.Uint64
}

// NewUniquifier creates a uniquifier for one run
func NewUniquifier(runID string) *Uniquifier {
	return &Uniquifier{runID: runID}
}

// Apply returns a unique variant of email. Values without a non-empty local
// part and domain around the last '@' are returned unchanged.
func (u *Uniquifier) Apply(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return email
	}
	n := u.seq.Add(1)
	return email[:at] + "+" + u.runID + strconv.FormatUint(n, 10) + email[at:]
}
