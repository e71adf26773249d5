package middleware

import (
	"regexp"
	"strings"

	"github.com/valyala/fasthttp"
)

const wildcardOrigin = "*"

var localhostRegex = regexp.MustCompile(`^https?://localhost:\d+$`)

type CORSMiddleware struct {
	allowedOrigins []string
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{wildcardOrigin}
	}
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
	}
}

func (cm *CORSMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		if origin != "" && cm.AllowsOrigin(origin) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Vary", "Origin")
		} else if cm.isWildcard() {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", wildcardOrigin)
		}

		ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type")
		ctx.Response.Header.Set("Access-Control-Max-Age", "86400")

		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

// AllowsOrigin reports whether origin may call the API or open the event
// websocket. "http://localhost:*" matches any localhost port.
func (cm *CORSMiddleware) AllowsOrigin(origin string) bool {
	if cm.isWildcard() {
		return true
	}
	for _, allowed := range cm.allowedOrigins {
		if allowed == origin {
			return true
		}
		if (allowed == "http://localhost:*" || allowed == "https://localhost:*") &&
			strings.HasPrefix(origin, strings.TrimSuffix(allowed, "*")) && localhostRegex.MatchString(origin) {
			return true
		}
	}
	return false
}

func (cm *CORSMiddleware) isWildcard() bool {
	return len(cm.allowedOrigins) == 1 && cm.allowedOrigins[0] == wildcardOrigin
}
