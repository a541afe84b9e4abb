package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const clientIDKey contextKey = iota

// localClient is the client name used when authentication is off.
const localClient = "local"

// ErrUnauthorized is returned for MCP calls without a valid bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// publicMethods complete the handshake before a client can present a token.
var publicMethods = map[string]bool{
	"initialize": true,
	"ping":       true,
}

// getClientID extracts the authenticated client from context.
func getClientID(ctx context.Context) string {
	v, _ := ctx.Value(clientIDKey).(string)
	return v
}

func withClientID(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, clientIDKey, client)
}

// ClientResolver resolves the API client owning a bearer token.
type ClientResolver interface {
	ResolveClient(ctx context.Context, token string) (string, error)
}

// authMiddleware requires a bearer token on every method except the handshake
// and notifications. The token arrives in the HTTP headers of the request.
func authMiddleware(resolver ClientResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if publicMethods[method] || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			var header http.Header
			if extra := req.GetExtra(); extra != nil {
				header = extra.Header
			}
			token := bearerToken(header)
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
			}

			client, err := resolver.ResolveClient(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
			}
			if client == "" {
				return nil, fmt.Errorf("%w: invalid bearer token", ErrUnauthorized)
			}
			return next(withClientID(ctx, client), method, req)
		}
	}
}

func bearerToken(header http.Header) string {
	if header == nil {
		return ""
	}
	token, ok := strings.CutPrefix(header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// noAuthMiddleware injects a fixed client when auth is disabled.
func noAuthMiddleware(client string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(withClientID(ctx, client), method, req)
		}
	}
}
