// Package report stores community-submitted field observations.
//
// Submissions arrive through the REST API and are broadcast to
// connected map viewers as they land; the store exists so late joiners
// can backfill recent reports.
package report
