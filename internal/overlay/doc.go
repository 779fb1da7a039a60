// Package overlay layers per-step allow/deny markers over an inner state.
//
// Markers live for one epoch only. The first transaction applied in a new
// epoch clears every marker before it runs, so an "allow" never survives
// into the next step unless it is proposed again. Deny wins over allow
// within the same epoch.
//
// Marker transactions never collide. A Wrap transaction collides with
// another Wrap exactly when their inner transactions collide.
package overlay
