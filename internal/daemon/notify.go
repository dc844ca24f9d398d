package daemon

import (
	"context"
	"log"

	"github.com/campusnote/campusnote/internal/alarm"
	"github.com/campusnote/campusnote/internal/session"
)

// Notifier shows a fired alarm to the user.
type Notifier interface {
	Notify(ctx context.Context, a alarm.Alarm) error
}

// LogNotifier writes alarms to a logger. It is the default when no desktop
// notification channel is configured.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(ctx context.Context, a alarm.Alarm) error {
	n.Logger.Printf("%s %s: %s (%s)", a.Kind, a.ID, a.Title, a.Body)
	return nil
}

// Dispatcher delivers alarms to n, dropping those of users other than the
// one signed in to sess.
func Dispatcher(sess *session.Session, n Notifier, logger *log.Logger) alarm.Dispatcher {
	return &alarm.UserFilter{
		Session: sess,
		Next: alarm.DispatcherFunc(func(ctx context.Context, a alarm.Alarm) error {
			return n.Notify(ctx, a)
		}),
		Logger: logger,
	}
}
