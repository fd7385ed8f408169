// Package gitops materializes approved fixes as version-control commits.
//
// It is a stateless layer over tickets: callers hand it a ticket with an
// attached modification and it applies the patch, stages, and commits on
// a clean working tree. Application is serialized per working directory
// so the clean-tree check and the commit are atomic with respect to
// other appliers.
package gitops
