package notify

import "fmt"

// ConfigurationError reports a required credential missing before any
// delivery attempt is made. Distinct from TransportError so callers can
// tell "misconfigured" apart from "provider rejected".
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return e.Detail
}

// TransportError reports that the underlying transport rejected or failed
// the operation after an attempt was made.
type TransportError struct {
	Channel string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Failed to send %s: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotInitializedError reports an in-app send attempted without a realtime
// hub wired in. The worker process runs without a hub, so in-app jobs that
// land on the queue resolve to this.
type NotInitializedError struct{}

func (e *NotInitializedError) Error() string {
	return "realtime hub not initialized"
}

// DecodeError reports a malformed job payload. Such messages are logged
// and acknowledged so they cannot poison the queue.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed delivery job: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
