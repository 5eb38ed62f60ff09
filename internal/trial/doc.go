// Package trial owns the trial record store: one experimental condition's
// navigation-then-simulation trials held as a row-per-trial table.
//
// Tables are values. Every pipeline stage clones the table it receives and
// returns the clone, so the output of earlier stages stays available for
// audit (for example filtered vs. unfiltered diff distributions).
//
// Exclusion never deletes a row. An excluded trial keeps its row index,
// participant and route; every numeric field is nulled and Excluded is set
// together with the reason.
package trial
