package routing

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier("/api", "/chat")

	tests := []struct {
		name        string
		path        string
		method      string
		wantClass   Class
		wantBackend string
	}{
		{
			name:        "empty path is implicit verify",
			path:        "",
			method:      http.MethodGet,
			wantClass:   Verify,
			wantBackend: "/verify",
		},
		{
			name:        "root slash is implicit verify",
			path:        "/",
			method:      http.MethodGet,
			wantClass:   Verify,
			wantBackend: "/verify",
		},
		{
			name:        "explicit verify",
			path:        "verify",
			method:      http.MethodPost,
			wantClass:   Verify,
			wantBackend: "/verify",
		},
		{
			name:        "login is public at backend root",
			path:        "login",
			method:      http.MethodPost,
			wantClass:   Public,
			wantBackend: "/login",
		},
		{
			name:        "register is public at backend root",
			path:        "/register",
			method:      http.MethodPost,
			wantClass:   Public,
			wantBackend: "/register",
		},
		{
			name:      "logout never leaves the gateway",
			path:      "logout",
			method:    http.MethodPost,
			wantClass: Logout,
		},
		{
			name:        "refresh at backend root",
			path:        "refresh",
			method:      http.MethodPost,
			wantClass:   Refresh,
			wantBackend: "/refresh",
		},
		{
			name:        "chat routes use the chat mount",
			path:        "chat/messages",
			method:      http.MethodPost,
			wantClass:   Protected,
			wantBackend: "/chat/messages",
		},
		{
			name:        "bare chat maps to the chat mount root",
			path:        "chat",
			method:      http.MethodGet,
			wantClass:   Protected,
			wantBackend: "/chat",
		},
		{
			name:        "resource routes get the API prefix",
			path:        "tasks/123",
			method:      http.MethodGet,
			wantClass:   Protected,
			wantBackend: "/api/tasks/123",
		},
		{
			name:        "auth verb with a subpath is an ordinary resource",
			path:        "login/history",
			method:      http.MethodGet,
			wantClass:   Protected,
			wantBackend: "/api/login/history",
		},
		{
			name:        "trailing slash is normalized",
			path:        "tasks/",
			method:      http.MethodGet,
			wantClass:   Protected,
			wantBackend: "/api/tasks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.path, tt.method)
			assert.Equal(t, tt.wantClass, got.Class)
			assert.Equal(t, tt.wantBackend, got.BackendPath)
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := NewClassifier("/api", "/chat")

	paths := []string{"", "/", "login", "verify", "tasks/1", "chat/messages", "anything/else"}
	for _, path := range paths {
		first := c.Classify(path, http.MethodGet)
		second := c.Classify(path, http.MethodGet)
		assert.Equal(t, first, second, "path %q", path)
	}
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "logout", Logout.String())
	assert.Equal(t, "refresh", Refresh.String())
	assert.Equal(t, "verify", Verify.String())
	assert.Equal(t, "protected", Protected.String())
	assert.Equal(t, "unknown", Class(99).String())
}
