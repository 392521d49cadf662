package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/export"
	"github.com/Bibleyou/RemoveBG-Pro/internal/ingest"
	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
	"github.com/Bibleyou/RemoveBG-Pro/internal/workflow"
)

// multipartOverhead is slack for multipart headers on top of the image itself.
const multipartOverhead = 1 << 20

// SessionHandler exposes the upload → process → download workflow.
// Each browser tab owns one session; the image data lives only in memory.
type SessionHandler struct {
	sessions     *workflow.Sessions
	ingestor     *ingest.Ingestor
	orchestrator *workflow.Orchestrator
	exporter     *export.Exporter
	maxBytes     int64
	logger       *zap.Logger

	// jobs tracks background processing so shutdown can wait for it.
	jobs sync.WaitGroup
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(
	sessions *workflow.Sessions,
	ingestor *ingest.Ingestor,
	orchestrator *workflow.Orchestrator,
	exporter *export.Exporter,
	maxBytes int64,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		ingestor:     ingestor,
		orchestrator: orchestrator,
		exporter:     exporter,
		maxBytes:     maxBytes,
		logger:       logger,
	}
}

// sessionView is the JSON shape the front-end renders from.
// The image fields are omitted from the compact view (?images=false), which
// is what a client should poll while a job runs.
type sessionView struct {
	ID                string        `json:"id"`
	Status            model.Status  `json:"status"`
	MIMEType          string        `json:"mime_type,omitempty"`
	ProcessedMIMEType string        `json:"processed_mime_type,omitempty"`
	Original          model.DataURI `json:"original,omitempty"`
	Processed         model.DataURI `json:"processed,omitempty"`
	HasOriginal       bool          `json:"has_original"`
	HasProcessed      bool          `json:"has_processed"`
	CanProcess        bool          `json:"can_process"`
	CanDownload       bool          `json:"can_download"`
}

func viewOf(sess *workflow.Session) sessionView {
	snap := sess.Store.Snapshot()
	view := compactViewOf(sess.ID, snap)
	view.Original = snap.Payload.Original
	view.Processed = snap.Payload.Processed
	return view
}

func compactViewOf(id string, snap workflow.Snapshot) sessionView {
	return sessionView{
		ID:                id,
		Status:            snap.Status,
		MIMEType:          snap.Payload.MIMEType,
		ProcessedMIMEType: snap.Payload.Processed.MIMEType(),
		HasOriginal:       snap.Payload.HasOriginal(),
		HasProcessed:      snap.Payload.HasProcessed(),
		CanProcess:        snap.Payload.HasOriginal() && !snap.Status.IsBusy(),
		CanDownload:       snap.Payload.HasProcessed() && !snap.Status.IsBusy(),
	}
}

// session resolves :id or writes a 404.
func (h *SessionHandler) session(c *gin.Context) (*workflow.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

// Create starts a new session.
// Route: POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	sess := h.sessions.Create()
	c.JSON(http.StatusCreated, viewOf(sess))
}

// Get returns the session state. The front-end polls it while a job runs.
// Route: GET /api/v1/sessions/:id[?images=false]
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	withImages := true
	if raw := c.Query("images"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "images must be true or false"})
			return
		}
		withImages = parsed
	}

	if !withImages {
		c.JSON(http.StatusOK, compactViewOf(sess.ID, sess.Store.Snapshot()))
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

// Upload replaces the session's original image.
// Route: PUT /api/v1/sessions/:id/image (multipart form, field "file")
//
// A rejected file leaves the session untouched. An accepted one clears any
// previous result and supersedes a job that is still running.
func (h *SessionHandler) Upload(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image: " + ingest.ReasonTooLarge, "reason": ingest.ReasonTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image: " + ingest.ReasonUnreadable, "reason": ingest.ReasonUnreadable})
		return
	}
	defer file.Close()

	payload, err := h.ingestor.Ingest(fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		reason := ingest.Reason(err)
		h.logger.Info("upload rejected",
			zap.String("session", sess.ID),
			zap.String("reason", reason),
			zap.String("filename", fileHeader.Filename),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image: " + reason, "reason": reason})
		return
	}

	sess.Store.Replace(payload)
	c.JSON(http.StatusOK, viewOf(sess))
}

type processRequest struct {
	Instruction string `json:"instruction"`
}

// Process starts background processing of the current image and returns at once.
// Route: POST /api/v1/sessions/:id/process (optional JSON body {"instruction": "..."})
func (h *SessionHandler) Process(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	// The body is optional. Bind whatever arrives, chunked included; an empty
	// body decodes to io.EOF.
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	job, err := h.orchestrator.Start(sess.Store, workflow.Trigger{Instruction: req.Instruction})
	switch {
	case errors.Is(err, workflow.ErrNoImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "upload an image first"})
		return
	case errors.Is(err, workflow.ErrBusy):
		c.JSON(http.StatusConflict, viewOf(sess))
		return
	case err != nil:
		// Preflight failed (no credential): the session already shows the message.
		c.JSON(http.StatusServiceUnavailable, viewOf(sess))
		return
	}

	// The job outlives this request; the client polls Get for the outcome.
	ctx := context.WithoutCancel(c.Request.Context())
	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		_ = job.Execute(ctx)
	}()

	c.JSON(http.StatusAccepted, viewOf(sess))
}

// Download serves the processed image as a file attachment.
// Route: GET /api/v1/sessions/:id/download
func (h *SessionHandler) Download(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	snap := sess.Store.Snapshot()
	artifact, err := h.exporter.Export(snap.Payload, snap.Status)
	if errors.Is(err, export.ErrNothingToExport) {
		c.JSON(http.StatusConflict, gin.H{"error": "nothing to download yet"})
		return
	}
	if err != nil {
		h.logger.Error("exporting result", zap.String("session", sess.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

// Delete ends the session and drops its images.
// Route: DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Wait blocks until background jobs finish or ctx is done.
func (h *SessionHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
