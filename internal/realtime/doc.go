// Package realtime maintains the push notification channel. A single actor
// goroutine owns the connection lifecycle; commands arrive over a channel,
// so state transitions are serialized without locks. A lost connection is
// retried after a fixed delay until the channel is deliberately torn down.
package realtime
