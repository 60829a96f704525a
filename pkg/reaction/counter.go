// Package reaction applies optimistic like counts and commits toggled
// reactions to the backing store after a quiet period.
package reaction

// State pairs the last value the store confirmed with the value the user
// currently sees.
type State struct {
	ServerValue bool `json:"server_value"`
	LocalValue  bool `json:"local_value"`
}

// Delta is the optimistic adjustment for s: zero when the values agree,
// otherwise +1 for a pending like and -1 for a pending unlike.
func Delta(s State) int64 {
	switch {
	case s.LocalValue == s.ServerValue:
		return 0
	case s.LocalValue:
		return 1
	default:
		return -1
	}
}

// OptimisticCount is the count to display for serverCount under s.
// It is a pure function and must be recomputed whenever either input changes.
func OptimisticCount(serverCount int64, s State) int64 {
	return serverCount + Delta(s)
}
