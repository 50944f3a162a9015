// Package driver models a driver as seen by the dispatcher: a candidate with a
// rating, a registration date and a count of routes currently occupying them.
package driver
