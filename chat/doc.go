// Package chat implements the private messaging subsystem: on-demand resolution
// of deduplicated one-to-one rooms, message send with immediate local display,
// and near-real-time delivery via per-room polling.
//
// It provides three layers:
//   - Directory: resolves a pair of users to a single private room, creating
//     the room and its two participant records only when none exists.
//   - Poller: a per-room background loop that loads history once, then
//     periodically fetches the room's messages and delivers only the ones past
//     its cursor that were authored by the counterpart.
//   - Manager: owns the set of open sessions (at most one per room), their
//     open/minimized state, and their pollers' lifecycles.
//
// Delivery targets are abstract sinks (DisplaySink, NotificationSink); the
// package never owns a UI. Per-room display order equals ascending message-ID
// order; there are no cross-room ordering guarantees.
package chat
