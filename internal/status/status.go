package status

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/prappser/prappser_upload/internal/artifact"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type StagingCounter interface {
	StagingSessions(ctx context.Context) (int, error)
}

type CatalogueStats interface {
	Stats() (*artifact.Stats, error)
}

type SubscriberStats interface {
	GetStats() (totalClients, totalSubscriptions int)
}

type StatusEndpoints struct {
	version     string
	staging     StagingCounter
	catalogue   CatalogueStats
	subscribers SubscriberStats
}

// NewEndpoints builds the status endpoint. catalogue may be nil when the
// artifact catalogue is disabled.
func NewEndpoints(version string, staging StagingCounter, catalogue CatalogueStats, subscribers SubscriberStats) *StatusEndpoints {
	return &StatusEndpoints{
		version:     version,
		staging:     staging,
		catalogue:   catalogue,
		subscribers: subscribers,
	}
}

type StatusResponse struct {
	Health          string          `json:"health"`
	Version         string          `json:"version"`
	StagingSessions int             `json:"stagingSessions"`
	Artifacts       *artifact.Stats `json:"artifacts,omitempty"`
	WSClients       int             `json:"wsClients"`
	WSSubscriptions int             `json:"wsSubscriptions"`
}

func (se *StatusEndpoints) Status(ctx *fasthttp.RequestCtx) {
	sessions, err := se.staging.StagingSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count staging sessions")
		ctx.Error("Failed to read storage", fasthttp.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		Health:          "OK",
		Version:         se.version,
		StagingSessions: sessions,
	}

	if se.catalogue != nil {
		stats, err := se.catalogue.Stats()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read artifact catalogue")
		} else {
			response.Artifacts = stats
		}
	}

	if se.subscribers != nil {
		response.WSClients, response.WSSubscriptions = se.subscribers.GetStats()
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(responseJSON)
}
