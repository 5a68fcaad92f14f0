package domain

// PlayMode controls which queue entry follows the current one.
type PlayMode int

const (
	PlayModeList   PlayMode = iota // Play through the queue once
	PlayModeLoop                   // Wrap around at either end
	PlayModeRandom                 // Pick a uniformly random entry
)

// String returns a human-readable representation of the play mode.
func (m PlayMode) String() string {
	switch m {
	case PlayModeLoop:
		return "loop"
	case PlayModeRandom:
		return "random"
	default:
		return "list"
	}
}

// Next returns the mode that follows m in the list -> loop -> random cycle.
func (m PlayMode) Next() PlayMode {
	switch m {
	case PlayModeList:
		return PlayModeLoop
	case PlayModeLoop:
		return PlayModeRandom
	default:
		return PlayModeList
	}
}

// ParsePlayMode converts a string to a PlayMode. Unknown values map to list.
func ParsePlayMode(s string) PlayMode {
	switch s {
	case "loop":
		return PlayModeLoop
	case "random":
		return PlayModeRandom
	default:
		return PlayModeList
	}
}
