package health

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/prappser/prappser_upload/internal/upload"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const probeTimeout = 5 * time.Second

// StorageProbe answers whether the storage backend is reachable.
type StorageProbe interface {
	Exists(ctx context.Context, path string) (bool, error)
}

type HealthEndpoints struct {
	version string
	storage StorageProbe
}

func NewEndpoints(version string, storage StorageProbe) *HealthEndpoints {
	return &HealthEndpoints{
		version: version,
		storage: storage,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *HealthEndpoints) Health(ctx *fasthttp.RequestCtx) {
	response := HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	statusCode := fasthttp.StatusOK

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := h.storage.Exists(probeCtx, upload.StagingRoot); err != nil {
		log.Warn().Err(err).Msg("Storage backend unreachable")
		response.Status = "degraded"
		statusCode = fasthttp.StatusServiceUnavailable
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(statusCode)
	ctx.SetBody(responseJSON)
}
