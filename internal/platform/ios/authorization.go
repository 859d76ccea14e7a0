package ios

import (
	"context"
	"fmt"
	"strings"
)

// AuthorizationStatus is the user's answer to the app tracking prompt.
type AuthorizationStatus int

const (
	NotDetermined AuthorizationStatus = iota
	Restricted
	Denied
	Authorized
	Unknown
)

func (s AuthorizationStatus) String() string {
	switch s {
	case NotDetermined:
		return "not_determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	}
	return "unknown"
}

// ParseAuthorizationStatus accepts the names produced by String, case-insensitively.
func ParseAuthorizationStatus(s string) (AuthorizationStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not_determined", "notdetermined", "":
		return NotDetermined, nil
	case "restricted":
		return Restricted, nil
	case "denied":
		return Denied, nil
	case "authorized":
		return Authorized, nil
	case "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown authorization status %q", s)
}

// Authorizer shows the tracking prompt and waits for the answer.
type Authorizer interface {
	RequestTrackingAuthorization(ctx context.Context) AuthorizationStatus
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context) AuthorizationStatus

func (f AuthorizerFunc) RequestTrackingAuthorization(ctx context.Context) AuthorizationStatus {
	return f(ctx)
}

// StaticAuthorizer answers every prompt with the same status.
type StaticAuthorizer AuthorizationStatus

func (s StaticAuthorizer) RequestTrackingAuthorization(context.Context) AuthorizationStatus {
	return AuthorizationStatus(s)
}
