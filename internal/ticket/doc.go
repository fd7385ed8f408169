// Package ticket owns the durable remediation records and their state
// machine.
//
// A ticket tracks one issue's fix for one file from creation through
// modification to commit or rejection. The store is the single writer;
// other components receive tickets by value and hand mutations back
// through the Service operations.
package ticket
