// Package destination decides where each record goes.
//
// Resolve picks an effective date (capture date, else the no-capture-date
// policy), renders the directory and file templates against it, and applies
// the duplicate policy when the candidate name is taken. Existence checks go
// through an injectable ExistsFunc so the algorithm can be exercised without a
// filesystem.
package destination
