package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxLoggedPayload caps the JSON logged per params or result.
const maxLoggedPayload = 2048

// trafficLogger logs each MCP exchange at debug level. Notifications are
// logged once; calls are logged after they complete with their latency.
func trafficLogger(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			attrs := []any{
				"direction", direction,
				"method", method,
				"session_id", sessionID(req),
				"client_id", getClientID(ctx),
			}
			if name := toolName(req); name != "" {
				attrs = append(attrs, "tool", name)
			}
			if strings.HasPrefix(method, "notifications/") {
				logger.Debug("mcp notification", attrs...)
				return next(ctx, method, req)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			attrs = append(attrs,
				"elapsed", time.Since(start),
				"params", payload(params(req)))

			if err != nil {
				logger.Debug("mcp call failed", append(attrs, "error", err)...)
				return result, err
			}
			if res, ok := result.(*sdkmcp.CallToolResult); ok && res.IsError {
				attrs = append(attrs, "tool_error", true)
			}
			logger.Debug("mcp call", append(attrs, "result", payload(result))...)
			return result, err
		}
	}
}

func toolName(req sdkmcp.Request) string {
	call, ok := req.(*sdkmcp.CallToolRequest)
	if !ok || call.Params == nil {
		return ""
	}
	return call.Params.Name
}

// sessionID tolerates requests whose session is not attached yet.
func sessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	if session := req.GetSession(); session != nil {
		return session.ID()
	}
	return ""
}

func params(req sdkmcp.Request) (p any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			p = nil
		}
	}()
	return req.GetParams()
}

func payload(v any) string {
	if v == nil {
		return "<nil>"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	if len(data) > maxLoggedPayload {
		return string(data[:maxLoggedPayload]) + "..."
	}
	return string(data)
}
