package downloadclient

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorClass distinguishes the connectivity failures surfaced to the
// operator during client setup and testing. "Bad credentials" and
// "unreachable" call for very different fixes, so they must not collapse
// into one message.
type ErrorClass string

const (
	ClassAuth        ErrorClass = "authentication"
	ClassTLS         ErrorClass = "certificate"
	ClassTimeout     ErrorClass = "timeout"
	ClassUnreachable ErrorClass = "unreachable"
	ClassUnknown     ErrorClass = "unknown"
)

// ClientError wraps a backend failure with its classification and the
// client it came from.
type ClientError struct {
	Client string
	Class  ErrorClass
	Err    error
}

func (e *ClientError) Error() string {
	switch e.Class {
	case ClassAuth:
		return fmt.Sprintf("%s: authentication failed, check username/password or API key", e.Client)
	case ClassTLS:
		return fmt.Sprintf("%s: TLS certificate error: %v", e.Client, e.Err)
	case ClassTimeout:
		return fmt.Sprintf("%s: connection timed out", e.Client)
	case ClassUnreachable:
		return fmt.Sprintf("%s: unreachable: %v", e.Client, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Client, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// authError builds a classified bad-credentials error.
func authError(client string, err error) error {
	return &ClientError{Client: client, Class: ClassAuth, Err: err}
}

// classify sorts a transport-level error into the operator-facing classes.
func classify(client string, err error) error {
	if err == nil {
		return nil
	}
	var existing *ClientError
	if errors.As(err, &existing) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Client: client, Class: ClassTimeout, Err: err}
	}

	var certErr *x509.CertificateInvalidError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) {
		return &ClientError{Client: client, Class: ClassTLS, Err: err}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "x509") || strings.Contains(msg, "tls:"):
		return &ClientError{Client: client, Class: ClassTLS, Err: err}
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable"):
		return &ClientError{Client: client, Class: ClassUnreachable, Err: err}
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return &ClientError{Client: client, Class: ClassTimeout, Err: err}
	}
	return &ClientError{Client: client, Class: ClassUnknown, Err: err}
}
