// Package status reconciles the divergent status sources of a freight:
// the per-driver assignment row and the driver's live trip progress. The
// assignment row is updated by an asynchronous sync that can fail
// silently, so the trip-progress signal wins whenever it exists.
package status

import "github.com/example/agriroute/internal/models"

// terminal statuses end a driver's participation for good.
var terminal = map[string]bool{
	models.StatusDelivered: true,
	models.StatusCompleted: true,
	models.StatusCancelled: true,
	models.StatusRejected:  true,
}

// Effective resolves one authoritative status from the two sources.
// Trip progress takes precedence when present; the assignment row is the
// fallback; with neither, the explicit UNKNOWN sentinel is returned so
// callers cannot mistake absence for a default.
func Effective(assignmentStatus, tripProgressStatus string) string {
	if tripProgressStatus != "" {
		return tripProgressStatus
	}
	if assignmentStatus != "" {
		return assignmentStatus
	}
	return models.StatusUnknown
}

// StillActive reports whether the effective status has not reached a
// terminal state. UNKNOWN counts as active: an absent status must not
// silently retire a participation.
func StillActive(assignmentStatus, tripProgressStatus string) bool {
	return !IsTerminal(Effective(assignmentStatus, tripProgressStatus))
}

// IsTerminal reports whether s ends the lifecycle.
func IsTerminal(s string) bool { return terminal[s] }
