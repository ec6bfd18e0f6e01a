package ports

// Worker is a long-running component started alongside the digest loop,
// such as the SMTP inbox listener or the metrics endpoint
type Worker interface {
	// Start begins serving in the background and returns once listening
	Start() error

	// Stop shuts the worker down
	Stop() error
}
