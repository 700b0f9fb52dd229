// Package domain holds what the user and task packages share: identifier
// syntax, the error kinds and their classification, and the events and
// effects emitted when assignments change.
package domain
