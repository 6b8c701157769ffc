// Package cache holds decoded paragraph audio for the current document,
// keyed by paragraph index, together with the set of indices whose audio
// is still being fetched.
package cache
