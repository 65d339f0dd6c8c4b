/*
Package locking serializes mutations of a single workflow.

Every graph-changing call and every run holds the lock for its workflow id, so two concurrent
edge creations can never both pass the out-degree checks. Locks are in-process mutexes,
reference counted so that idle workflows do not leak entries, optionally backed by a
ports.DistributedLocker when several replicas share one store.
*/
package locking
