package cli

// StatusError reports an unsuccessful exit from a command, carrying the
// process exit code the host should surface alongside the message.
type StatusError struct {
	Status     string
	StatusCode int
}

func (e StatusError) Error() string {
	return e.Status
}
