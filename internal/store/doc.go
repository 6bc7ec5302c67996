// Package store defines the persistence interfaces for the application's
// entities, along with the common error types store implementations return.
//
// Every measurement read and write takes the owning user's ID as a mandatory
// filter. Cross-owner access is impossible at this layer, not just at the
// API layer; a record owned by someone else is indistinguishable from one
// that does not exist.
package store
