// Package issue defines the validated issue shape consumed by the
// remediation pipeline.
//
// Issues arrive at the boundary as loosely-typed payloads (free-text
// severity, optional file lists under more than one key). Intake
// normalizes them into the Issue struct with explicit defaulting rules
// so that internal components only ever see the validated shape.
package issue
