package mint

import "time"

// DefaultStatusTTL is how long success and error messages stay visible.
const DefaultStatusTTL = 5 * time.Second

type StatusKind string

const (
	StatusLoading StatusKind = "loading"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the transient message shown to the user. Loading messages
// have no expiry and stay until replaced.
type Status struct {
	Message string
	Kind    StatusKind
	Expires time.Time
}

// Visible reports whether the status should still be shown at now.
func (s Status) Visible(now time.Time) bool {
	if s.Message == "" {
		return false
	}
	return s.Expires.IsZero() || now.Before(s.Expires)
}

// Notifier receives every status the controller publishes.
type Notifier interface {
	Notify(Status)
}

type NotifierFunc func(Status)

func (f NotifierFunc) Notify(s Status) { f(s) }

type noopNotifier struct{}

func (noopNotifier) Notify(Status) {}
