package gateway

import "fmt"

// ShapeError means the gateway answered but the body did not have the
// structure we expect (missing collection, wrong-typed field). The affected
// slice of view state is recoverable; independent fetches keep going.
type ShapeError struct {
	Endpoint string
	Detail   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %s", e.Endpoint, e.Detail)
}

// TransportError means the call itself failed: network error, auth rejection
// or a non-2xx status. View-models treat this as coarser than a ShapeError.
type TransportError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: gateway returned status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: gateway request failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
