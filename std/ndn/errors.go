package ndn

import (
	"errors"
	"fmt"

	enc "github.com/named-data/ndnrpc/std/encoding"
)

type ErrInvalidValue struct {
	Item  string
	Value any
}

func (e ErrInvalidValue) Error() string {
	return fmt.Sprintf("invalid value for %s: %v", e.Item, e.Value)
}

// ErrMalformedName is returned when a name cannot be parsed.
var ErrMalformedName = enc.ErrMalformedName

// ErrMalformedPacket is returned when a packet cannot be decoded.
var ErrMalformedPacket = errors.New("malformed packet")

// ErrKeyNotFound is returned when no signing key covers the owner name.
var ErrKeyNotFound = errors.New("signing key not found")

// ErrSigningFailed is returned when the key store is unusable or the signer fails.
var ErrSigningFailed = errors.New("signing failed")

// ErrNoRoute is returned when no registered prefix covers a name.
var ErrNoRoute = errors.New("no route")

// ErrDuplicateRequest is returned when an unexpired request with the same name and nonce exists.
var ErrDuplicateRequest = errors.New("duplicate request")

// ErrTimeout is returned when a pending request expires unfulfilled.
var ErrTimeout = errors.New("interest deadline exceeded")

// ErrTransport is returned when the face is down.
var ErrTransport = errors.New("face is down, unable to send packet")

// ErrIncompleteTransfer is returned when segments are still missing at expiry.
var ErrIncompleteTransfer = errors.New("incomplete segmented transfer")

// ErrCancelled is returned when a pending request was withdrawn.
var ErrCancelled = errors.New("operation cancelled")

// NackError is the outcome of an Interest answered by a network Nack.
type NackError struct {
	Reason NackReason
}

func (e NackError) Error() string {
	return "interest nacked: " + e.Reason.String()
}

func malformed(format string, v ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedPacket}, v...)...)
}
