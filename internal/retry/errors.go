package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failed segment transfer for retry decisions.
type ErrorKind int

const (
	// KindConnection covers timeouts, resets, throttling (429/503), and
	// server-side transient errors (5xx). Retryable with backoff.
	KindConnection ErrorKind = iota
	// KindProtocol marks a structurally wrong server response (wrong status
	// or Content-Range on a range request). Never retried.
	KindProtocol
	// KindStorage marks a local disk failure. Never retried.
	KindStorage
	// KindOther is everything else (e.g. 404); not retried.
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindStorage:
		return "storage"
	default:
		return "other"
	}
}

// TransferError is the failure of a single segment transfer attempt, carrying
// its classification so the policy can decide retry vs fatal.
type TransferError struct {
	Kind   ErrorKind
	Status int // HTTP status when relevant, 0 otherwise
	Err    error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failure (status %d)", e.Kind, e.Status)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func ConnectionErr(err error) *TransferError {
	return &TransferError{Kind: KindConnection, Err: err}
}

func ProtocolErr(status int, msg string) *TransferError {
	return &TransferError{Kind: KindProtocol, Status: status, Err: fmt.Errorf("range response violation: %s", msg)}
}

func StorageErr(err error) *TransferError {
	return &TransferError{Kind: KindStorage, Err: fmt.Errorf("storage: %w", err)}
}

// PartialErr reports fewer bytes written than the segment length. Classified
// as a connection failure since it usually means a dropped connection mid-body.
func PartialErr(expected, received int64) *TransferError {
	return &TransferError{
		Kind: KindConnection,
		Err:  fmt.Errorf("partial transfer: expected %d bytes, got %d", expected, received),
	}
}

// StatusErr classifies a non-206 response to a range request. Throttling and
// server errors are transient; a 200 (or any other 2xx/3xx) means the server
// ignored the range and retrying cannot fix that.
func StatusErr(status int) *TransferError {
	switch {
	case status == 429 || status == 503:
		return &TransferError{Kind: KindConnection, Status: status, Err: fmt.Errorf("server throttled request (HTTP %d)", status)}
	case status >= 500:
		return &TransferError{Kind: KindConnection, Status: status, Err: fmt.Errorf("server error (HTTP %d)", status)}
	case status >= 200 && status < 300:
		return ProtocolErr(status, fmt.Sprintf("expected 206 Partial Content, got %d", status))
	default:
		return &TransferError{Kind: KindOther, Status: status, Err: fmt.Errorf("unexpected status code: %d", status)}
	}
}

// Classify maps any error to an ErrorKind. Transport-level errors (timeouts,
// resets, DNS) count as connection failures.
func Classify(err error) ErrorKind {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindConnection
	}
	return KindOther
}
