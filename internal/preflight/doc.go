// Package preflight provides readiness checks for the external tools and
// filesystem paths meshbatch depends on.
//
// The "meshbatch status" command runs RunAll and CheckSystemDeps to report
// whether the state directory, the run ledger, Blender and the solver are
// usable. Batch commands call CheckDirectoryAccess on their output directory
// before starting work.
package preflight
