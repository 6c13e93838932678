// Package healthcheck periodically polls circuit breakers and reports
// state changes. It complements breaker listeners by also catching breakers
// created after startup and the lazy OPEN to HALF-OPEN move, which only
// happens when a caller asks for admission.
package healthcheck
