// Package schedule provides deferred execution that can be cancelled
// before it fires.
//
// RunAfter and RunAt execute a function asynchronously once a delay has
// elapsed or a point in time has been reached. Both return a cancel
// function; cancelling before the function fires guarantees it never runs.
package schedule
