// Package activity records reading sessions, optionally linked to a book.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"biblomnemon/internal/library"
)

var (
	ErrNotFound = errors.New("reading activity not found")
	// ErrBookNotFound is returned when book_id names a book that does not exist.
	ErrBookNotFound = errors.New("linked book not found")
	ErrInvalid      = errors.New("invalid reading activity")
)

// clock is swapped in tests.
var clock = time.Now

// ReadingActivity is one reading session. A session without Ended is still
// running.
type ReadingActivity struct {
	ID          int64         `json:"id"`
	BookID      *string       `json:"book_id,omitempty"`
	Book        *library.Book `json:"book,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Started     time.Time     `json:"started"`
	Ended       *time.Time    `json:"ended,omitempty"`
	PagesRead   *int          `json:"pages_read,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Duration is Ended (or now) minus Started. ok is false when the result
// would be negative.
func (a ReadingActivity) Duration(now time.Time) (d time.Duration, ok bool) {
	end := now
	if a.Ended != nil {
		end = *a.Ended
	}
	d = end.Sub(a.Started)
	if d < 0 {
		return 0, false
	}
	return d, true
}

// DurationReadable renders the duration as "1d 2h 3m 4s", or "" when there
// is none.
func (a ReadingActivity) DurationReadable(now time.Time) string {
	d, ok := a.Duration(now)
	if !ok {
		return ""
	}
	return FormatDuration(d)
}

// FormatDuration prints whole days, hours, minutes and seconds, omitting zero
// units. A duration under one second prints "0s".
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	minutes := secs / 60
	secs %= 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

func (a ReadingActivity) MarshalJSON() ([]byte, error) {
	type plain ReadingActivity
	out := struct {
		plain
		DurationMS *int64 `json:"duration_ms,omitempty"`
		Duration   string `json:"duration,omitempty"`
	}{plain: plain(a)}

	now := clock()
	if d, ok := a.Duration(now); ok {
		ms := d.Milliseconds()
		out.DurationMS = &ms
		out.Duration = FormatDuration(d)
	}
	return json.Marshal(out)
}

// Validate checks the invariants shared by create and update.
func (a ReadingActivity) Validate() error {
	if a.Started.IsZero() {
		return fmt.Errorf("%w: started is required", ErrInvalid)
	}
	if a.Ended != nil && a.Ended.Before(a.Started) {
		return fmt.Errorf("%w: ended must not be before started", ErrInvalid)
	}
	if a.PagesRead != nil && *a.PagesRead < 0 {
		return fmt.Errorf("%w: pages_read must not be negative", ErrInvalid)
	}
	return nil
}

type Repository interface {
	List(ctx context.Context, limit, offset int) ([]ReadingActivity, int, error)
	GetByID(ctx context.Context, id int64) (ReadingActivity, error)
	Insert(ctx context.Context, a *ReadingActivity) error
	Update(ctx context.Context, a *ReadingActivity) error
	Delete(ctx context.Context, id int64) error
	// Restore upserts an activity keeping its ID.
	Restore(ctx context.Context, a ReadingActivity) error
}
