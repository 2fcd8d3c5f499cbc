// Package routine turns day-relative recurring schedules into concrete,
// dated task instances every calendar day.
//
// The Runner owns the entry store and the day-off sets. Each day it
// instantiates every stored entry, classifies the instances as ready,
// deferred or infeasible, submits the ready ones through a Submitter and
// parks the deferred ones on a single dispatcher loop until their
// pre-submission offset is reached.
//
// Every wait polls a Clock instead of sleeping for a computed duration, so
// the runner behaves correctly under simulated clocks that do not advance
// at wall-clock rate.
package routine
