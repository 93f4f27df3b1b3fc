/*
Package observability exports wizard lifecycle activity as Prometheus metrics.

Metrics are fed exclusively through domain.LifecycleHooks, so any session
configured with Metrics.Hooks() is observed without further wiring.
*/
package observability
