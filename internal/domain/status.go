package domain

import "strings"

// Stage is a step of the transfer state machine.
type Stage string

const (
	StageStart   Stage = "start"
	StageFetched Stage = "fetched"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

var stageLabels = map[Stage]string{
	StageStart:   "Started",
	StageFetched: "Downloaded",
	StageDone:    "Uploaded",
	StageFailed:  "Failed",
}

// Label returns a human-readable label for the stage.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// ParseStage returns the stage for a given name (case-insensitive).
func ParseStage(name string) (Stage, bool) {
	s := Stage(strings.ToLower(strings.TrimSpace(name)))
	_, ok := stageLabels[s]

	return s, ok
}
