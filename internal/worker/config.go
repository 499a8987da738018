package worker

// Config holds the configuration for the blocking-work pool.
type Config struct {
	// Size is the number of long-lived worker goroutines, and therefore the
	// maximum number of jobs running at once.
	Size int
}

// DefaultConfig matches the default database pool size, so every worker
// can hold a connection without waiting on another.
func DefaultConfig() Config {
	return Config{
		Size: 4,
	}
}
