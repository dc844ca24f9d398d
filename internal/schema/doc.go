// Package schema defines the three shapes every campusnote entity takes and
// the converters between them.
//
// # Shapes
//
//   - Record  - the JSON wire model exchanged with the REST API
//     (ScheduleRecord, NoteRecord, ReminderRecord, ReminderFileRecord)
//   - Row     - the local cache row (Schedule, Note, Reminder, ReminderFile)
//   - View    - the read-only projection handed to presentation code
//
// Data flows Record -> Row -> View for reads. Writes go from an Input through
// a Request body to the API; the cache is only ever filled from Records.
//
// # Totality
//
// Every converter is total. Ids that arrive as JSON numbers are normalized to
// strings, optional fields become nil pointers, unparseable timestamps become
// the zero time, and note bodies go through content.Parse which never fails.
package schema
