// Package zone manages persisted map overlays marking flood and outage
// risk areas.
//
// Zones come from two paths that share one store: operators create them
// through the admin API, and the rule engine creates them when sensor
// thresholds are crossed. Automated zones carry provenance (the rule
// and sensor that produced them), which drives the engine's 5-minute
// dedup guard and the retention sweep that expires stale overlays.
package zone
