// Package alarm projects schedules and reminders onto local alarms.
//
// ScheduleTrigger and ReminderTrigger compute the next trigger instant for a
// row. A Scheduler holds at most one timer per entity (Key), so re-scheduling
// an entity replaces its pending alarm. A Projector feeds the Scheduler from
// cache snapshots, and a UserFilter in front of the real Dispatcher keeps
// alarms of other accounts from being shown to the signed-in user.
package alarm
