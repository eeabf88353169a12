package dispatch

import (
	"net/http"
)

type (
	// Dispatcher renders a resource for an in-flight request without the
	// caller producing any output itself.
	Dispatcher interface {
		Forward(w http.ResponseWriter, r *http.Request) error
	}
	// Provider hands out dispatchers for resource paths. It returns nil when
	// no dispatcher exists for the path.
	Provider interface {
		RequestDispatcher(path string) Dispatcher
	}
	// DispatcherFunc adapts a function to the Dispatcher interface.
	DispatcherFunc func(w http.ResponseWriter, r *http.Request) error
)

func (f DispatcherFunc) Forward(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// CommittedError is returned by a Dispatcher that failed after it already
// wrote to the response. The caller must not write an error response.
type CommittedError struct {
	Err error
}

func (e *CommittedError) Error() string {
	return "response committed: " + e.Err.Error()
}

func (e *CommittedError) Unwrap() error {
	return e.Err
}
