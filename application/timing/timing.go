// Package timing produces human-like delays. Every navigation and interaction
// in a flow is followed by one of these waits.
package timing

import (
	"context"
	"math/rand"
	"time"
)

const (
	msPerChar     = 80 * time.Millisecond
	maxTypingWait = 8 * time.Second
)

// Model scales the human pacing presets. The zero value disables all waits.
type Model struct {
	Scale float64
}

// Human returns the model used in production
func Human() Model {
	return Model{Scale: 1}
}

// Jittered returns a duration uniformly distributed in [min, max]
func Jittered(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min+1)))
}

func (m Model) scaled(d time.Duration) time.Duration {
	if m.Scale <= 0 {
		return 0
	}
	return time.Duration(float64(d) * m.Scale)
}

// Between returns a scaled jittered delay
func (m Model) Between(min, max time.Duration) time.Duration {
	return m.scaled(Jittered(min, max))
}

// PageSettle is the reaction time after a page finished loading
func (m Model) PageSettle() time.Duration {
	return m.Between(1500*time.Millisecond, 3500*time.Millisecond)
}

// ReadingPause mimics a reader skimming the page
func (m Model) ReadingPause() time.Duration {
	return m.Between(300*time.Millisecond, 1000*time.Millisecond)
}

// ActionPause is the short think time between two interactions
func (m Model) ActionPause() time.Duration {
	return m.Between(300*time.Millisecond, 800*time.Millisecond)
}

// SPARender gives client-side rendered lists time to appear
func (m Model) SPARender() time.Duration {
	return m.Between(500*time.Millisecond, 1500*time.Millisecond)
}

// EditorInit gives the rich-text editor time to initialize
func (m Model) EditorInit() time.Duration {
	return m.Between(2000*time.Millisecond, 4000*time.Millisecond)
}

// PollInterval is the DOM probe's interval between two checks. It is never
// zero so a disabled model still yields the scheduler.
func (m Model) PollInterval() time.Duration {
	d := m.Between(100*time.Millisecond, 250*time.Millisecond)
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}

// Typing approximates how long a human needs to type n characters:
// about 80ms per character with +/-20% variation, capped.
func (m Model) Typing(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	variation := 0.8 + rand.Float64()*0.4
	d := time.Duration(float64(time.Duration(n)*msPerChar) * variation)
	if d > maxTypingWait {
		d = maxTypingWait
	}
	return m.scaled(d)
}

// Wait suspends for d or until ctx is done
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
