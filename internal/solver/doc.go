// Package solver runs the boundary-element solver over every file in an
// input directory.
//
// Each input produces <output_dir>/<prefix><stem><ext>, where stem is the
// input name up to its first ".". Up to solver.jobs processes run at once and
// a failing input never stops the others. When a ledger is attached, inputs
// whose output was produced by an earlier successful run and still exists are
// skipped unless Force is set.
package solver
