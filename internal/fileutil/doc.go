// Package fileutil holds the small filesystem helpers shared by the batch
// commands: atomic writes, directory creation, and exclusive directory locks.
package fileutil
