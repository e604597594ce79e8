// Package objects provides the identity tables behind shared objects.
//
// Every object that can be referenced more than once in an archive gets a
// handle. Handles start at 1 and are handed out in insertion order, so the
// n-th distinct object of a session is always written with anchor n.
//
// # Handle Table
//
// The Table maps an identity key to a handle and a value:
//
//	table := objects.New[*yaml.Node, reflect.Value]()
//
//	// Insert a value, get a handle
//	handle, fresh := table.Insert(node, value)
//
//	// Retrieve by key
//	value, ok := table.Value(node)
//
//	// Count handles issued
//	n := table.Len()
//
// A Table is owned by a single session and is not safe for concurrent use.
package objects
