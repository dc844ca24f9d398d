package alarm

import (
	"context"
	"log"

	"github.com/campusnote/campusnote/internal/session"
)

// UserFilter drops alarms owned by someone other than the signed-in user.
// Several accounts can share one device; only the active one is notified.
type UserFilter struct {
	Session *session.Session
	Next    Dispatcher
	Logger  *log.Logger
}

// Dispatch forwards a to Next when its owner is the current user or unset.
func (f *UserFilter) Dispatch(ctx context.Context, a Alarm) error {
	current := f.Session.UserID()
	if a.UserID != "" && a.UserID != current {
		if f.Logger != nil {
			f.Logger.Printf("Dropping %s for user %s (signed in: %q)", a.Key, a.UserID, current)
		}
		return nil
	}
	return f.Next.Dispatch(ctx, a)
}
