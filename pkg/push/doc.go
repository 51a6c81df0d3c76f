// Package push delivers notification events to live client connections.
//
// The registry maps a user identity to its open push channels; a user may
// hold several connections at once (multiple tabs, devices). Registrations
// live only in memory: a process restart starts from an empty registry and
// clients reconnect.
//
// The dispatcher fans an event out to every live channel of every unique
// recipient concurrently. Delivery is best-effort: a recipient without a
// live channel is skipped, and a failing channel never blocks or fails
// delivery to the others.
package push
