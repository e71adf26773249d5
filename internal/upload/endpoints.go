package upload

import (
	"errors"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/prappser/prappser_upload/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Endpoints struct {
	service *Service
}

func NewEndpoints(service *Service) *Endpoints {
	return &Endpoints{
		service: service,
	}
}

func (e *Endpoints) VerifyExists(ctx *fasthttp.RequestCtx) {
	var req protocol.VerifyRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}

	response, err := e.service.VerifyExists(ctx, &req)
	if err != nil {
		writeError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, response)
}

func (e *Endpoints) UploadChunk(ctx *fasthttp.RequestCtx) {
	contentType := string(ctx.Request.Header.ContentType())
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		ctx.Error("Content-Type must be multipart/form-data", fasthttp.StatusBadRequest)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.Error("Failed to parse multipart form", fasthttp.StatusBadRequest)
		return
	}

	files := form.File[protocol.FormFieldChunk]
	if len(files) == 0 {
		ctx.Error("No chunk uploaded", fasthttp.StatusBadRequest)
		return
	}

	hash := ""
	if hashes := form.Value[protocol.FormFieldHash]; len(hashes) > 0 {
		hash = hashes[0]
	}
	fingerprint, index, err := protocol.ParseChunkID(hash)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		return
	}

	suffix := ""
	if suffixes := form.Value[protocol.FormFieldSuffix]; len(suffixes) > 0 {
		suffix = suffixes[0]
	}

	file, err := files[0].Open()
	if err != nil {
		ctx.Error("Failed to open uploaded chunk", fasthttp.StatusInternalServerError)
		return
	}
	defer file.Close()

	if err := e.service.UploadChunk(ctx, fingerprint, index, suffix, file); err != nil {
		log.Error().Err(err).Str("chunk", hash).Msg("Failed to store chunk")
		writeError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, &protocol.ChunkResponse{Fingerprint: fingerprint, Index: index})
}

func (e *Endpoints) MergeChunks(ctx *fasthttp.RequestCtx) {
	var req protocol.MergeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}

	response, err := e.service.MergeChunks(ctx, &req)
	if err != nil {
		writeError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, response)
}

func (e *Endpoints) GetFile(ctx *fasthttp.RequestCtx) {
	name, ok := ctx.UserValue("fileName").(string)
	if !ok || name == "" {
		ctx.Error("File name is required", fasthttp.StatusBadRequest)
		return
	}

	fingerprint, suffix, _ := strings.Cut(name, ".")
	if protocol.ValidateFingerprint(fingerprint) != nil || protocol.ValidateSuffix(suffix) != nil {
		ctx.Error("Invalid file name", fasthttp.StatusBadRequest)
		return
	}

	reader, err := e.service.GetArtifact(ctx, ArtifactPath(fingerprint, suffix))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.Error("File not found", fasthttp.StatusNotFound)
			return
		}
		ctx.Error("Failed to retrieve file", fasthttp.StatusInternalServerError)
		return
	}
	defer reader.Close()

	ctx.SetContentType("application/octet-stream")
	ctx.Response.Header.Set("Content-Disposition", "attachment; filename=\""+name+"\"")

	if _, err := io.Copy(ctx, reader); err != nil {
		log.Error().Err(err).Msg("Failed to stream file")
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body interface{}) {
	responseBody, err := json.Marshal(body)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(responseBody)
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	status := fasthttp.StatusInternalServerError
	switch {
	case errors.Is(err, protocol.ErrInvalidFingerprint),
		errors.Is(err, protocol.ErrInvalidSuffix),
		errors.Is(err, protocol.ErrInvalidChunkSize),
		errors.Is(err, ErrInvalidChunkIndex):
		status = fasthttp.StatusBadRequest
	case errors.Is(err, ErrIncompleteUpload),
		errors.Is(err, ErrChunkSizeMismatch),
		errors.Is(err, ErrFingerprintMismatch):
		status = fasthttp.StatusConflict
	}

	writeJSON(ctx, status, &protocol.MergeResponse{Success: false, Error: err.Error()})
}
