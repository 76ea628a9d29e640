package service

import "campus-market/internal/domain"

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the single user-facing report of a finished mutation.
// Reload asks the front-end to restart from the login check.
type Notification struct {
	Level     Level
	Operation string
	Outcome   domain.Outcome
	Message   string
	Reload    bool
}

// Notifier receives notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Fixed user-facing messages.
const (
	MsgUnauthorized   = "You are not allowed to perform this action."
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgNoTokens       = "Your session is no longer valid. Please log in again."
	MsgFailed         = "Something went wrong. Please try again."
	MsgDone           = "Done."
)

var successMessages = map[domain.Method]string{
	domain.MethodCreate:     "Listing posted.",
	domain.MethodUpdate:     "Listing updated.",
	domain.MethodDelete:     "Listing deleted.",
	domain.MethodMarkSold:   "Marked as sold.",
	domain.MethodMarkUnsold: "Marked as unsold.",
	domain.MethodRepost:     "Listing reposted.",
}
