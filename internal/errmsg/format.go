// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackStop  Op = "stop playback"

	// Driver operations
	OpDriverSpawn   Op = "launch player"
	OpDriverConnect Op = "connect to player socket"
	OpDriverQuery   Op = "query playback position"

	// Resume state operations
	OpResumeLookup Op = "look up resume position"
	OpResumeCommit Op = "save resume position"
	OpResumeForget Op = "remove resume record"
	OpResumeList   Op = "list resume records"

	// Folder operations
	OpFolderResolve Op = "resolve folder playlist"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
