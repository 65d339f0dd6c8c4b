/*
Package observability turns engine lifecycle events into metrics and audit logs.

Both Metrics.Hooks and LogHooks return domain.LifecycleHooks; combine them with Merge and pass
the result to waypoint.WithLifecycleHooks.
*/
package observability
