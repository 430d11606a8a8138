// Package results defines core types shared across subsystems.
package results

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a crawl target.
type Status string

// Target status values persisted in the target list.
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// ParseStatus validates a persisted status string.
// Unknown values are rejected rather than silently skipped.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusQueued, StatusProcessing, StatusProcessed, StatusFailed:
		return Status(raw), nil
	default:
		return "", &InputError{Reason: fmt.Sprintf("unrecognized target status %q", raw)}
	}
}

// Window is the inclusive time interval during which a target may be attempted.
// A missing bound leaves the target unrestricted.
type Window struct {
	ValidFrom  *time.Time `json:"validFrom"`
	ValidUntil *time.Time `json:"validUntil"`
}

// Contains reports whether now falls inside the window.
// The check is boundary-inclusive; if either bound is absent the
// window does not restrict at all.
func (w Window) Contains(now time.Time) bool {
	if w.ValidFrom == nil || w.ValidUntil == nil {
		return true
	}
	return !now.Before(*w.ValidFrom) && !now.After(*w.ValidUntil)
}

// Tracking records attempt history for a target.
type Tracking struct {
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastAttemptAt *time.Time `json:"lastAttemptAt"`
	SucceededAt   *time.Time `json:"succeededAt"`
	AttemptCount  int        `json:"attemptCount"`
}

// EventDates carries the calendar dates of the underlying race event.
type EventDates struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Target is one schedulable unit of work corresponding to a single
// source document.
type Target struct {
	ID       string      `json:"id"`
	URL      string      `json:"url"`
	Status   Status      `json:"status"`
	Event    *EventDates `json:"event,omitempty"`
	Window   Window      `json:"crawlPolicy"`
	Tracking Tracking    `json:"tracking"`
}

// RecordAttempt stamps the tracking block for an attempt made at now.
// attemptCount only ever increases.
func (t *Target) RecordAttempt(now time.Time) {
	ts := now
	t.Tracking.LastAttemptAt = &ts
	t.Tracking.UpdatedAt = now
	t.Tracking.AttemptCount++
}

// MarkProcessed transitions the target into its terminal success state.
// succeededAt is set only on the first transition.
func (t *Target) MarkProcessed(now time.Time) {
	t.Status = StatusProcessed
	if t.Tracking.SucceededAt == nil {
		ts := now
		t.Tracking.SucceededAt = &ts
	}
}

// MarkFailed marks the target failed; it stays eligible for a later run.
func (t *Target) MarkFailed() {
	t.Status = StatusFailed
}

// Record is one extracted entity result.
type Record struct {
	Name      string
	Category  string
	RaceName  string
	Event     string
	Location  string
	Rank      string
	Date      string
	SourceURL string
}

// Key identifies "the same result" across extraction runs. Two records
// sharing a key collapse to one in the master dataset.
type Key struct {
	Name     string
	RaceName string
	Event    string
}

// Key returns the uniqueness key of the record.
func (r Record) Key() Key {
	return Key{Name: r.Name, RaceName: r.RaceName, Event: r.Event}
}

// Criteria lists the clubs and athletes whose results must be
// extracted from each document. Read-only to the pipeline.
type Criteria struct {
	Clubs    []string `json:"clubs"`
	Athletes []string `json:"athletes"`
}

// Empty reports whether the criteria match nothing.
func (c Criteria) Empty() bool {
	return len(c.Clubs) == 0 && len(c.Athletes) == 0
}
