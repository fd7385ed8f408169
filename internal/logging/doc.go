// Package logging provides the structured logger used across remedyd.
//
// The logger wraps Zap with context-aware methods: correlation fields
// (trace/span IDs, request ID, ticket ID) are pulled from the
// context.Context on every call so that one remediation pipeline run can
// be followed across components.
package logging
