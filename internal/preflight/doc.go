// Package preflight provides readiness checks for the filesystem paths a run
// depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before starting any stage. If a check fails
//     the run stops before a single file is touched.
//   - The CLI "mediasort config validate" command prints every result so
//     permission problems show up before the first real run.
package preflight
