package insights

// ConnectivityMonitor reports whether the network path to the API is
// believed usable. The pipeline consults it before scheduling a retry and
// skips the backoff wait entirely while offline.
type ConnectivityMonitor interface {
	// IsConnected returns the last known connectivity state.
	IsConnected() bool

	// Changes returns a channel that receives the new state on every
	// transition. The channel is buffered; a slow receiver observes the
	// latest transition, not every intermediate one.
	Changes() <-chan bool

	// Close stops the monitor and releases its resources.
	Close() error
}
