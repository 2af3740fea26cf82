package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anvil-lab/catalogue/internal/catalogue"
	"github.com/anvil-lab/catalogue/internal/services/csvimport"
)

// ImportHandler exposes the Import Engine and its supplemented
// history/statistics/columns endpoints over HTTP.
type ImportHandler struct {
	engine  *csvimport.Engine
	catalog catalogue.Store
	logger  *zap.Logger
}

// NewImportHandler builds an ImportHandler.
func NewImportHandler(engine *csvimport.Engine, catalog catalogue.Store, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{engine: engine, catalog: catalog, logger: logger}
}

// Import handles POST /imports/products.
func (h *ImportHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "Bad Request", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "Bad Request", "failed to read uploaded file")
		return
	}

	opts := csvimport.DefaultOptions()
	if v := c.PostForm("validate_only"); v != "" {
		opts.ValidateOnly, _ = strconv.ParseBool(v)
	}
	if v := c.PostForm("skip_invalid"); v != "" {
		opts.SkipInvalid, _ = strconv.ParseBool(v)
	}
	if v := c.PostForm("update_existing"); v != "" {
		opts.UpdateExisting, _ = strconv.ParseBool(v)
	}

	result, err := h.engine.Import(c.Request.Context(), header.Filename, data, opts)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Validate handles POST /imports/products/validate.
func (h *ImportHandler) Validate(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "Bad Request", "file field is required")
		return
	}
	defer file.Close()

	valid, missing := csvimport.Validate(file)
	if !valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"valid": false, "missing_columns": missing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// Columns handles GET /imports/products/columns.
func (h *ImportHandler) Columns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"columns":     []string{"sku", "name", "price", "stock_quantity", "description", "status", "primary_image"},
		"import_type": "products",
	})
}

// History handles GET /imports/history.
func (h *ImportHandler) History(c *gin.Context) {
	page, perPage := pageParams(c)
	logs, total, err := h.catalog.ListImportLogs(c.Request.Context(), page, perPage)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total, "page": page, "per_page": perPage})
}

// Get handles GET /imports/:id.
func (h *ImportHandler) Get(c *gin.Context) {
	l, err := h.catalog.GetImportLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"import": l,
		"summary": gin.H{
			"processed":    l.Processed(),
			"success_rate": l.SuccessRate(),
		},
	})
}

// Statistics handles GET /imports/statistics.
func (h *ImportHandler) Statistics(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		days = 30
	}

	stats, err := h.catalog.ImportStatisticsSince(c.Request.Context(), days)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statistics": stats, "period_days": days})
}
