package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anvil-lab/catalogue/internal/services/upload"
)

// UploadHandler exposes the Upload Engine over HTTP.
type UploadHandler struct {
	engine *upload.Engine
	logger *zap.Logger
}

// NewUploadHandler builds an UploadHandler.
func NewUploadHandler(engine *upload.Engine, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{engine: engine, logger: logger}
}

type initUploadRequest struct {
	OriginalFilename string `json:"original_filename" binding:"required"`
	TotalChunks      int    `json:"total_chunks" binding:"required"`
	TotalSize        int64  `json:"total_size" binding:"required"`
	ChecksumSHA256   string `json:"checksum_sha256" binding:"required"`
	MimeType         string `json:"mime_type"`
}

// Initialize handles POST /uploads/initialize.
func (h *UploadHandler) Initialize(c *gin.Context) {
	var req initUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	u, err := h.engine.Initialize(c.Request.Context(), req.OriginalFilename, req.TotalChunks, req.TotalSize, req.ChecksumSHA256, req.MimeType)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type receiveChunkRequest struct {
	UploadID   string `json:"upload_id" binding:"required"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkData  string `json:"chunk_data" binding:"required"`
	Checksum   string `json:"checksum" binding:"required"`
}

// ReceiveChunk handles POST /uploads/chunk.
func (h *UploadHandler) ReceiveChunk(c *gin.Context) {
	var req receiveChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	result, err := h.engine.ReceiveChunk(c.Request.Context(), req.UploadID, req.ChunkIndex, req.ChunkData, req.Checksum)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type completeRequest struct {
	GenerateVariants *bool `json:"generate_variants"`
}

// Complete handles POST /uploads/:id/complete. generate_variants
// defaults to true when the client omits it.
func (h *UploadHandler) Complete(c *gin.Context) {
	var req completeRequest
	_ = c.ShouldBindJSON(&req)

	generateVariants := true
	if req.GenerateVariants != nil {
		generateVariants = *req.GenerateVariants
	}

	result, err := h.engine.Complete(c.Request.Context(), c.Param("id"), generateVariants)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Status handles GET /uploads/:id/status.
func (h *UploadHandler) Status(c *gin.Context) {
	u, err := h.engine.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Resume handles GET /uploads/:id/resume.
func (h *UploadHandler) Resume(c *gin.Context) {
	result, err := h.engine.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Cancel handles DELETE /uploads/:id/cancel.
func (h *UploadHandler) Cancel(c *gin.Context) {
	cancelled, err := h.engine.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// VerifyChecksum handles GET /uploads/:id/verify.
func (h *UploadHandler) VerifyChecksum(c *gin.Context) {
	ok, err := h.engine.VerifyChecksum(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checksum_valid": ok})
}
