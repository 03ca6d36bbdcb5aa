// Package notify provides desktop notifications via D-Bus.
package notify

import (
	"fmt"
	"path/filepath"
)

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Path to image file or icon name (optional)
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are disabled or unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// PlaybackSaved builds the notification shown when a session ends with
// an unfinished position on record.
func PlaybackSaved(path string, position, duration float64) Notification {
	body := "Stopped at " + FormatPosition(position)
	if duration > 0 {
		body += " of " + FormatPosition(duration)
	}
	return Notification{
		Title:   filepath.Base(path),
		Body:    body,
		Icon:    "media-playback-pause",
		Timeout: 5000,
		Urgency: UrgencyLow,
	}
}

// PlaybackFinished builds the notification shown when a session ends
// past the completion threshold.
func PlaybackFinished(path string) Notification {
	return Notification{
		Title:   filepath.Base(path),
		Body:    "Finished",
		Icon:    "media-playback-stop",
		Timeout: 5000,
		Urgency: UrgencyLow,
	}
}

// FormatPosition renders seconds as h:mm:ss, or m:ss under an hour.
func FormatPosition(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := total % 3600 / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
