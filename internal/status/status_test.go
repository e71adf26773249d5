package status

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prappser/prappser_upload/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fakeStaging struct {
	sessions int
	err      error
}

func (f fakeStaging) StagingSessions(context.Context) (int, error) {
	return f.sessions, f.err
}

type fakeCatalogue struct{}

func (fakeCatalogue) Stats() (*artifact.Stats, error) {
	return &artifact.Stats{Count: 4, UsedBytes: 1 << 20}, nil
}

type fakeSubscribers struct{}

func (fakeSubscribers) GetStats() (int, int) { return 2, 3 }

func TestStatus_ReportsStagingCatalogueAndSubscribers(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.0.0", fakeStaging{sessions: 5}, fakeCatalogue{}, fakeSubscribers{})
	var ctx fasthttp.RequestCtx

	// when
	endpoints.Status(&ctx)

	// then
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var response StatusResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, StatusResponse{
		Health:          "OK",
		Version:         "1.0.0",
		StagingSessions: 5,
		Artifacts:       &artifact.Stats{Count: 4, UsedBytes: 1 << 20},
		WSClients:       2,
		WSSubscriptions: 3,
	}, response)
}

func TestStatus_WithoutCatalogue(t *testing.T) {
	endpoints := NewEndpoints("1.0.0", fakeStaging{}, nil, nil)
	var ctx fasthttp.RequestCtx

	endpoints.Status(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.NotContains(t, string(ctx.Response.Body()), "artifacts")
}

func TestStatus_StorageFailure(t *testing.T) {
	endpoints := NewEndpoints("1.0.0", fakeStaging{err: errors.New("disk gone")}, nil, nil)
	var ctx fasthttp.RequestCtx

	endpoints.Status(&ctx)

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
}
