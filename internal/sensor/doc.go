// Package sensor manages configured measurement points: river gauges,
// rain gauges and grid monitors placed on the community map.
//
// A sensor carries its own threshold; automation rules reference
// sensors by ID and compare each sensor's latest reading against that
// threshold. Readings themselves are not persisted here - the rule
// engine holds only the latest value per sensor in memory, and history
// goes to InfluxDB.
package sensor
