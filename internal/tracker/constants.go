package tracker

import "time"

const DefaultInterval = 5 * time.Second
const DefaultConflictRetries = 5

var conflictBackoff = 50 * time.Millisecond
