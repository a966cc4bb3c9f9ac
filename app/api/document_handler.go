package api

import (
	"context"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"docchat/ingest"
	"docchat/loader"
	"docchat/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// DocumentHandler ingests uploaded PDFs: extract text, chunk, embed, persist.
type DocumentHandler struct {
	pipeline  *ingest.Pipeline
	uploadDir string
	logger    *slog.Logger
}

func NewDocumentHandler(pipeline *ingest.Pipeline, uploadDir string, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{
		pipeline:  pipeline,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// HandleUpload accepts one or more files in a multipart form. Files are
// ingested in parallel and each gets its own success or failure marker; one
// broken file never aborts the rest of the batch.
func (h *DocumentHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return ErrBadRequest()
	}

	files := form.File["files"]
	if len(files) == 0 {
		return NewError(fiber.StatusBadRequest, "no files provided")
	}

	// files are staged on disk sequentially (the request body is a single
	// stream), then ingested in parallel
	staged := make([]string, len(files))
	results := make([]types.FileResult, len(files))
	for i, fh := range files {
		results[i] = types.FileResult{Filename: fh.Filename}
		path := filepath.Join(h.uploadDir, uuid.NewString()+"_"+filepath.Base(fh.Filename))
		if err := c.SaveFile(fh, path); err != nil {
			results[i].Error = "failed to store upload: " + err.Error()
			continue
		}
		staged[i] = path
	}

	var wg sync.WaitGroup
	for i := range files {
		if staged[i] == "" {
			continue
		}
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()
			defer os.Remove(staged[i])
			results[i] = h.ingestFile(c.Context(), fh.Filename, staged[i])
		}(i, files[i])
	}
	wg.Wait()

	return c.JSON(types.UploadResponse{Results: results})
}

func (h *DocumentHandler) ingestFile(ctx context.Context, filename, path string) types.FileResult {
	result := types.FileResult{Filename: filename}

	text, pageCount, err := loader.ExtractText(path)
	if err != nil {
		h.logger.Warn("failed to extract text", "file", filename, "error", err)
		result.Error = err.Error()
		return result
	}

	docID := types.NewDocID()
	metadata := map[string]string{
		"source": filename,
		"pages":  strconv.Itoa(pageCount),
	}

	chunkCount, err := h.pipeline.IngestText(ctx, docID, text, metadata)
	if err != nil {
		h.logger.Error("failed to ingest document", "file", filename, "doc_id", docID, "error", err)
		result.Error = err.Error()
		return result
	}

	result.DocID = docID
	result.PageCount = pageCount
	result.ChunkCount = chunkCount
	return result
}
