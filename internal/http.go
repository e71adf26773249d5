package internal

import (
	"strings"

	"github.com/prappser/prappser_upload/internal/artifact"
	"github.com/prappser/prappser_upload/internal/health"
	"github.com/prappser/prappser_upload/internal/middleware"
	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/prappser/prappser_upload/internal/status"
	"github.com/prappser/prappser_upload/internal/upload"
	"github.com/prappser/prappser_upload/internal/websocket"
	"github.com/valyala/fasthttp"
)

// NewRequestHandler routes the upload API. artifactEndpoints is nil when
// the catalogue is disabled.
func NewRequestHandler(corsMiddleware *middleware.CORSMiddleware, uploadEndpoints *upload.Endpoints, artifactEndpoints *artifact.Endpoints, healthEndpoints *health.HealthEndpoints, statusEndpoints *status.StatusEndpoints, wsHandler *websocket.Handler) fasthttp.RequestHandler {
	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == protocol.PathVerify:
			if method == fasthttp.MethodPost {
				uploadEndpoints.VerifyExists(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == protocol.PathChunk:
			if method == fasthttp.MethodPost {
				uploadEndpoints.UploadChunk(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == protocol.PathMerge:
			if method == fasthttp.MethodPost {
				uploadEndpoints.MergeChunks(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case path == protocol.PathFiles:
			switch {
			case method != fasthttp.MethodGet:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			case artifactEndpoints == nil:
				ctx.Error("Artifact catalogue disabled", fasthttp.StatusNotFound)
			default:
				artifactEndpoints.ListArtifacts(ctx)
			}
		case strings.HasPrefix(path, protocol.PathFiles+"/"):
			parts := strings.Split(path, "/")
			if len(parts) != 3 {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
				return
			}
			if method != fasthttp.MethodGet {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				return
			}
			ctx.SetUserValue("fileName", parts[2])
			uploadEndpoints.GetFile(ctx)

		case path == "/health":
			healthEndpoints.Health(ctx)
		case path == "/status":
			statusEndpoints.Status(ctx)
		case path == "/ws":
			wsHandler.HandleFastHTTP(ctx)

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return corsMiddleware.Handle(handler)
}
