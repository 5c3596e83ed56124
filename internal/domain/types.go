package domain

import "time"

type SessionID string
type UserID string

// SentinelNewSession is the local-only id of a conversation that has not been
// persisted yet. It must never reach a store adapter as a real identifier.
const SentinelNewSession SessionID = "new"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Timestamp = time.Time
