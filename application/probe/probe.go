// Package probe polls a live page until an observable condition holds.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"noet_automation/application/timing"
	"noet_automation/domain/interfaces"
)

// Condition is an observable page state
type Condition struct {
	Description string
	Check       func(ctx context.Context, page interfaces.Page) (bool, error)
}

// TimeoutError reports a condition that did not hold in time
type TimeoutError struct {
	Condition string
	Timeout   time.Duration
	LastErr   error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.Condition)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// IsTimeout reports whether err is a probe timeout
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Prober polls conditions at human-paced intervals
type Prober struct {
	pace timing.Model
}

// New - creates new prober
func New(pace timing.Model) *Prober {
	return &Prober{pace: pace}
}

// WaitFor polls cond until it holds or timeout elapses. Evaluation errors
// count as "not yet": pages mid-navigation reject scripts.
func (p *Prober) WaitFor(ctx context.Context, page interfaces.Page, cond Condition, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		ok, err := cond.Check(ctx, page)
		if err != nil {
			lastErr = err
		} else if ok {
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("waiting for %s: %w", cond.Description, ctx.Err())
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Condition: cond.Description, Timeout: timeout, LastErr: lastErr}
		}
		interval := p.pace.PollInterval()
		if interval > remaining {
			interval = remaining
		}
		if err := timing.Wait(ctx, interval); err != nil {
			return fmt.Errorf("waiting for %s: %w", cond.Description, err)
		}
	}
}

const selectorScript = `(sels) => sels.some((s) => { try { return document.querySelector(s) !== null; } catch (e) { return false; } })`

// Selector holds when any of the selectors matches an element
func Selector(description string, selectors ...string) Condition {
	if description == "" {
		description = strings.Join(selectors, ", ")
	}
	return Condition{
		Description: description,
		Check: func(ctx context.Context, page interfaces.Page) (bool, error) {
			res, err := page.Evaluate(ctx, selectorScript, selectors)
			if err != nil {
				return false, err
			}
			ok, _ := res.(bool)
			return ok, nil
		},
	}
}

// Script holds when the JavaScript predicate returns a truthy value
func Script(description, script string, arg any) Condition {
	return Condition{
		Description: description,
		Check: func(ctx context.Context, page interfaces.Page) (bool, error) {
			res, err := page.Evaluate(ctx, script, arg)
			if err != nil {
				return false, err
			}
			return truthy(res), nil
		},
	}
}

// URLContains holds once the page location contains s
func URLContains(s string) Condition {
	return Condition{
		Description: fmt.Sprintf("navigation to a URL containing %q", s),
		Check: func(ctx context.Context, page interfaces.Page) (bool, error) {
			return strings.Contains(page.URL(), s), nil
		},
	}
}

// URLNotContains holds once the page location no longer contains s
func URLNotContains(s string) Condition {
	return Condition{
		Description: fmt.Sprintf("navigation away from a URL containing %q", s),
		Check: func(ctx context.Context, page interfaces.Page) (bool, error) {
			return !strings.Contains(page.URL(), s), nil
		},
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}
