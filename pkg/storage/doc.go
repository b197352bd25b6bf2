// Package storage provides the one concrete extent manager and allocator
// record store this module ships: a single growable data file holding a
// chain of fixed extents (diskloc.ExtentManager) plus the DeletedRecord
// free-list headers pkg/alloc reads and writes within them (alloc.Store).
// See extentfile.go for the implementation.
package storage
