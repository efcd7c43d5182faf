package routing

import (
	"strings"
)

// Class is the handling family an inbound path belongs to
type Class int

const (
	// Public routes (login, register) are forwarded without a credential;
	// a token issued in the response is captured into the cookie.
	Public Class = iota
	// Logout clears the session cookie without contacting the backend
	Logout
	// Refresh exchanges the current token for a new one
	Refresh
	// Verify checks the current token against the backend
	Verify
	// Protected routes require a token and are forwarded under a backend prefix
	Protected
)

func (c Class) String() string {
	switch c {
	case Public:
		return "public"
	case Logout:
		return "logout"
	case Refresh:
		return "refresh"
	case Verify:
		return "verify"
	case Protected:
		return "protected"
	default:
		return "unknown"
	}
}

// Result is the outcome of classifying one request path
type Result struct {
	Class Class
	// BackendPath is the target path on the backend service. Empty for
	// Logout, which never leaves the gateway.
	BackendPath string
}

// Classifier maps inbound paths (already stripped of the gateway mount
// prefix) to their handling class and backend target. Pure and stateless;
// safe for concurrent use.
type Classifier struct {
	apiPrefix  string
	chatPrefix string
}

// NewClassifier creates a classifier with the backend mount prefixes
func NewClassifier(apiPrefix, chatPrefix string) *Classifier {
	return &Classifier{
		apiPrefix:  strings.TrimSuffix(apiPrefix, "/"),
		chatPrefix: strings.TrimSuffix(chatPrefix, "/"),
	}
}

// Classify maps a path and method to a classification result. Classification
// is total: every path lands in exactly one class. An empty path is the
// implicit "check session on page load" case and is treated as Verify.
func (c *Classifier) Classify(path, method string) Result {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return Result{Class: Verify, BackendPath: "/verify"}
	}

	head, rest, _ := strings.Cut(trimmed, "/")

	// Recognized auth verbs map to root-level backend routes, never prefixed.
	switch head {
	case "login":
		if rest == "" {
			return Result{Class: Public, BackendPath: "/login"}
		}
	case "register":
		if rest == "" {
			return Result{Class: Public, BackendPath: "/register"}
		}
	case "logout":
		if rest == "" {
			return Result{Class: Logout}
		}
	case "refresh":
		if rest == "" {
			return Result{Class: Refresh, BackendPath: "/refresh"}
		}
	case "verify":
		if rest == "" {
			return Result{Class: Verify, BackendPath: "/verify"}
		}
	case "chat":
		// Chat-style routes live under their own backend mount point
		if rest == "" {
			return Result{Class: Protected, BackendPath: c.chatPrefix}
		}
		return Result{Class: Protected, BackendPath: c.chatPrefix + "/" + rest}
	}

	return Result{Class: Protected, BackendPath: c.apiPrefix + "/" + trimmed}
}
