package repo

import (
	"log"
	"os"

	"github.com/campusnote/campusnote/internal/cache"
	"github.com/campusnote/campusnote/internal/session"
)

// Deps are the collaborators shared by all repositories.
type Deps struct {
	// DB is the cache. Required.
	DB *cache.DB

	// Session supplies the default scope. Required.
	Session *session.Session

	// Alarms is told about deletions. Nil disables alarm cancellation.
	Alarms AlarmCanceler

	// Logger defaults to stderr with a [repo] prefix.
	Logger *log.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Alarms == nil {
		d.Alarms = noAlarms{}
	}
	if d.Logger == nil {
		d.Logger = log.New(os.Stderr, "[repo] ", log.LstdFlags)
	}
	return d
}

// userScope resolves an explicit user scope, falling back to the signed-in
// user. A nil result means the whole collection.
func (d Deps) userScope(userID *string) *string {
	if userID != nil {
		return userID
	}
	return d.Session.Current().Scope()
}

func scopeLabel(scope *string) string {
	if scope == nil {
		return "all"
	}
	return "user " + *scope
}
