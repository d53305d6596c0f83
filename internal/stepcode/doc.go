// Package stepcode turns a workflow code such as "P1M2,P2&R1M4,R4SL7" into
// an ordered list of classified steps.
//
// Classification is pure: Parse and Classify never touch configuration or
// providers. Each token is matched against the whole trimmed string in a fixed
// priority order, so exactly one Kind applies. The Params field carries a
// closed set of concrete types, one per Kind, for callers to type-switch on.
package stepcode
