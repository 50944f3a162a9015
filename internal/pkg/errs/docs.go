// Package errs holds the typed errors shared by the domain, application and
// adapter layers.
//
// Every type pairs a sentinel (ErrValueIsRequired, ErrValueIsInvalid,
// ErrValueIsOutOfRange, ErrObjectNotFound) with a struct carrying the offending
// parameter, so callers can branch with errors.Is and read details with
// errors.As. Drop and route validation joins several of them with errors.Join;
// Flatten turns such a join back into one message per violated rule, which is
// how issues reach the unassigned list and the HTTP API.
package errs
