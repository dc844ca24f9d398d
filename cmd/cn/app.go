package main

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/campusnote/campusnote/internal/api"
	"github.com/campusnote/campusnote/internal/attach"
	"github.com/campusnote/campusnote/internal/cache"
	"github.com/campusnote/campusnote/internal/config"
	"github.com/campusnote/campusnote/internal/repo"
	"github.com/campusnote/campusnote/internal/session"
)

// errSignedOut is returned by commands that need a signed-in user.
var errSignedOut = errors.New("not signed in, run 'cn login' first")

// app is the set of components a command works with.
type app struct {
	logs   io.WriteCloser
	db     *cache.DB
	client *api.Client
	store  *session.Store
	sess   *session.Session
	files  *attach.Store

	schedules *repo.ScheduleRepository
	notes     *repo.NoteRepository
	reminders *repo.ReminderRepository
}

// openApp opens the cache, restores the session and builds the repositories.
func openApp() (*app, error) {
	a := &app{logs: cfg.Log.Writer()}

	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		a.logs.Close()
		return nil, err
	}
	db.SetLogger(a.logger("cache"))
	a.db = db

	a.store = session.NewStore(cfg.Session.Path)
	a.sess, err = a.store.Restore()
	if err != nil {
		a.Close()
		return nil, err
	}

	clientCfg := api.DefaultConfig()
	clientCfg.BaseURL = cfg.API.BaseURL
	clientCfg.ConnectTimeout = cfg.API.ConnectTimeout
	clientCfg.ReadTimeout = cfg.API.ReadTimeout
	clientCfg.Logger = a.logger("api")
	a.client, err = api.New(clientCfg, a.sess)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.files, err = attach.Open(cfg.Files.Dir)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.files.SetLogger(a.logger("attach"))

	a.useAlarms(nil)
	return a, nil
}

// useAlarms rebuilds the repositories so deletions cancel alarms.
func (a *app) useAlarms(alarms repo.AlarmCanceler) {
	deps := repo.Deps{
		DB:      a.db,
		Session: a.sess,
		Alarms:  alarms,
		Logger:  a.logger("repo"),
	}
	a.schedules = repo.NewScheduleRepository(a.client, deps)
	a.notes = repo.NewNoteRepository(a.client, deps)
	a.reminders = repo.NewReminderRepository(a.client, a.files, deps)
}

func (a *app) logger(component string) *log.Logger {
	return config.NewLogger(a.logs, component)
}

// requireUser returns the signed-in user id.
func (a *app) requireUser() (string, error) {
	state := a.sess.Current()
	if !state.SignedIn() {
		return "", errSignedOut
	}
	return state.UserID, nil
}

func (a *app) Close() error {
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
	}
	if err := a.logs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
