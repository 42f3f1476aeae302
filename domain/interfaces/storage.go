package interfaces

// Storage keeps the browser's own session state (cookies, local storage)
// between host restarts
type Storage interface {
	// SaveState stores the serialized session state
	SaveState(state []byte) error

	// LoadState returns the stored session state, or nil if none exists
	LoadState() ([]byte, error)
}
