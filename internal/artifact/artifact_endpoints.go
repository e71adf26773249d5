package artifact

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type Endpoints struct {
	repository *Repository
}

func NewEndpoints(repository *Repository) *Endpoints {
	return &Endpoints{
		repository: repository,
	}
}

func (e *Endpoints) ListArtifacts(ctx *fasthttp.RequestCtx) {
	limit := defaultListLimit
	if raw := ctx.QueryArgs().Peek("limit"); len(raw) > 0 {
		n, err := fasthttp.ParseUint(raw)
		if err != nil || n == 0 {
			ctx.Error("Invalid limit", fasthttp.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	artifacts, err := e.repository.List(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list artifacts")
		ctx.Error("Failed to list artifacts", fasthttp.StatusInternalServerError)
		return
	}

	responseBody, err := json.Marshal(artifacts)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(responseBody)
}
