// Package rules implements sensor-driven zone automation for FORMS Core.
//
// A rule maps one or two sensors' threshold conditions to automatic
// creation of a map zone. The Engine receives readings, keeps the
// latest value per sensor in memory, and evaluates every enabled rule
// on each reading:
//
//   - 1-sensor rules fire on readings from their own sensor, above
//     threshold by default, or below it when the rule's condition is
//     inactive.
//   - 2-sensor rules combine both sensors' threshold states with AND
//     or OR, and never fire until both sensors have reported at least
//     once.
//
// Triggered rules create a zone through the zone store unless the same
// rule created one within the dedup window, in which case the existing
// zone id is returned instead. Zones the rule cannot draw (a circle
// for a sensor without a location, a line without enough points) are
// skipped with a warning and processing continues.
//
// The Registry caches rules in memory so evaluation costs no database
// round trip; the Repository persists them in SQLite.
package rules
