package dom

import (
	"strconv"
	"strings"
	"time"
)

// transitionSlack is added to the computed duration before the fallback
// timer settles a transition whose transitionend never arrives
const transitionSlack = 5 * time.Millisecond

// parseCSSTime returns the longest of a computed CSS time list such as
// "0.35s, 200ms". Unparsable entries count as zero.
func parseCSSTime(raw string) time.Duration {
	var longest time.Duration
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		unit := time.Second
		if strings.HasSuffix(part, "ms") {
			part, unit = strings.TrimSuffix(part, "ms"), time.Millisecond
		} else {
			part = strings.TrimSuffix(part, "s")
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v <= 0 {
			continue
		}
		if d := time.Duration(v * float64(unit)); d > longest {
			longest = d
		}
	}
	return longest
}

// transitionTime is the time a transition with the given computed
// transition-duration and transition-delay takes to end
func transitionTime(duration, delay string) time.Duration {
	d := parseCSSTime(duration)
	if d == 0 {
		return 0
	}
	return d + parseCSSTime(delay)
}

// fallbackDelay is when the emulated transition end fires
func fallbackDelay(d time.Duration) time.Duration {
	return d + transitionSlack
}

// completion runs finish once, for the first of transitionend and the
// fallback timer
type completion struct {
	finish func()
	done   bool
}

func newCompletion(finish func()) *completion {
	return &completion{finish: finish}
}

// fire runs finish on the first call and reports whether it did
func (c *completion) fire() bool {
	if c.done {
		return false
	}
	c.done = true
	c.finish()
	return true
}
