package session

import "github.com/llehouerou/cue/internal/driver"

// StatusChange is emitted when a session's lifecycle state moves.
type StatusChange struct {
	Entry    string
	Previous Status
	Current  Status
}

// Checkpoint is emitted after a mid-session position commit.
type Checkpoint struct {
	Entry    string
	Position driver.Position
}

// End is emitted once per session, after the final commit.
type End struct {
	Entry    string
	Position driver.Position
	Finished bool
	ExitCode int
}
