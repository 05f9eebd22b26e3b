package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Pause switches. A true value stops new executions of the named intent;
// executions already past quoting are not affected.
const (
	KeyPauseAll    = "intents.paused"
	pauseKeyPrefix = "intents."
	pauseKeySuffix = ".paused"
)

// PauseKey is the switch for one intent, e.g. "intents.swap.paused".
func PauseKey(intent string) string {
	return pauseKeyPrefix + intent + pauseKeySuffix
}

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
