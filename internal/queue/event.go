// Package queue defines the auth domain events exchanged over the message
// broker and the background consumer that records them.
package queue

// Queue names. Both queues are declared durable by publisher and consumer.
const (
	UserRegisteredQueue = "auth.user.registered"
	SecurityAlertQueue  = "auth.security"
)

// UserRegisteredEvent is published when an account is created, whether
// through registration or first OAuth login. Downstream consumers use it to
// send welcome email without the auth flow knowing about delivery.
type UserRegisteredEvent struct {
	UserID       string `json:"user_id"`
	Login        string `json:"login"`
	Email        string `json:"email"`
	RegisteredAt string `json:"registered_at"`
}

// SecurityAlertEvent is published on security-relevant account changes
// (2FA enabled/disabled) so users can be notified out of band.
type SecurityAlertEvent struct {
	UserID     string `json:"user_id"`
	Kind       string `json:"kind"`
	Detail     string `json:"detail"`
	OccurredAt string `json:"occurred_at"`
}
