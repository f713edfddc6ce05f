// Package memory provides an in-process implementation of the persistence
// interfaces in internal/store, used by tests and by the memory database driver.
// Transactions copy only the entries they write.
package memory
