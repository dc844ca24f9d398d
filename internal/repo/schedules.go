package repo

import (
	"context"
	"fmt"

	"github.com/campusnote/campusnote/internal/cache"
	"github.com/campusnote/campusnote/internal/schema"
)

// ScheduleRepository syncs class schedules.
type ScheduleRepository struct {
	api ScheduleAPI
	Deps
}

// NewScheduleRepository creates a ScheduleRepository.
func NewScheduleRepository(api ScheduleAPI, deps Deps) *ScheduleRepository {
	return &ScheduleRepository{api: api, Deps: deps.withDefaults()}
}

// Observe streams the cached schedules of userID (the signed-in user when
// nil), ordered by day of week then start time.
func (r *ScheduleRepository) Observe(ctx context.Context, userID *string) <-chan []schema.Schedule {
	scope := r.userScope(userID)
	return cache.Observe(ctx, r.DB, func(ctx context.Context) ([]schema.Schedule, error) {
		return r.DB.ListSchedules(ctx, scope)
	}, cache.TableSchedules)
}

// List returns the cached schedules of userID without touching the network.
func (r *ScheduleRepository) List(ctx context.Context, userID *string) ([]schema.Schedule, error) {
	return r.DB.ListSchedules(ctx, r.userScope(userID))
}

// Refresh replaces the cached schedules of userID with the remote ones. On
// failure the cache is left as it was.
func (r *ScheduleRepository) Refresh(ctx context.Context, userID *string) error {
	scope := r.userScope(userID)

	records, err := r.api.ListSchedules(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to fetch schedules: %w", err)
	}

	rows := make([]schema.Schedule, 0, len(records))
	for _, rec := range records {
		row := schema.ScheduleFromRecord(rec)
		if row.ID == "" {
			r.Logger.Printf("WARNING: skipping schedule without id (%s)", row.CourseName)
			continue
		}
		if row.UserID == "" && scope != nil {
			row.UserID = *scope
		}
		rows = append(rows, row)
	}

	if err := r.DB.ReplaceSchedules(ctx, scope, rows); err != nil {
		return fmt.Errorf("failed to store schedules: %w", err)
	}

	r.Logger.Printf("Refreshed %d schedules (%s)", len(rows), scopeLabel(scope))
	return nil
}

// Create posts a new schedule, caches the returned row immediately and then
// refreshes. A refresh failure is returned, but the created row stays.
func (r *ScheduleRepository) Create(ctx context.Context, in schema.ScheduleInput) (schema.Schedule, error) {
	if err := in.Validate(); err != nil {
		return schema.Schedule{}, fmt.Errorf("invalid schedule: %w", err)
	}

	rec, err := r.api.CreateSchedule(ctx, in.Request())
	if err != nil {
		return schema.Schedule{}, fmt.Errorf("failed to create schedule: %w", err)
	}

	row := schema.ScheduleFromRecord(rec)
	if row.UserID == "" {
		row.UserID = r.Session.UserID()
	}
	if err := r.DB.UpsertSchedule(ctx, row); err != nil {
		return row, fmt.Errorf("failed to cache schedule %s: %w", row.ID, err)
	}

	if err := r.Refresh(ctx, nil); err != nil {
		return row, fmt.Errorf("schedule %s created: %w", row.ID, err)
	}
	return row, nil
}

// Update replaces schedule id remotely and refreshes the owner's schedules.
func (r *ScheduleRepository) Update(ctx context.Context, id string, in schema.ScheduleInput) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	if err := r.api.UpdateSchedule(ctx, id, in.Request()); err != nil {
		return fmt.Errorf("failed to update schedule %s: %w", id, err)
	}
	return r.Refresh(ctx, nil)
}

// Delete removes schedule id remotely, then from the cache, then cancels
// its alarm. A remote failure leaves the cached row in place.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if err := r.api.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	if err := r.DB.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	r.Alarms.CancelSchedule(id)

	r.Logger.Printf("Deleted schedule: %s", id)
	return nil
}
