package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"etf-go-api/internal/apperr"
	"etf-go-api/internal/logging"
	"etf-go-api/internal/models"
)

// Service runs the upload pipeline on a stored CSV file and manages the price cache.
type Service interface {
	ProcessFile(ctx context.Context, path string, topN int) (*models.UploadResponse, error)
	RefreshPrices(ctx context.Context) error
}

// UploadObserver is told the outcome code of every upload, 0 on success.
type UploadObserver interface {
	ObserveUpload(code int)
}

type ETFHandler struct {
	service         Service
	observer        UploadObserver
	defaultTopCount int
	timeout         time.Duration
	log             *logging.Logger
}

// NewETFHandler creates the handler. observer may be nil.
func NewETFHandler(service Service, defaultTopCount int, observer UploadObserver, log *logging.Logger) *ETFHandler {
	return &ETFHandler{
		service:         service,
		observer:        observer,
		defaultTopCount: defaultTopCount,
		timeout:         30 * time.Second,
		log:             log.Component("etf_handler"),
	}
}

// Upload handles POST /api/etf/upload
func (h *ETFHandler) Upload(c *fiber.Ctx) error {
	h.log.Info().Str("request_id", requestID(c)).Str("ip", c.IP()).Msg("Received file upload request")

	header, err := c.FormFile("file")
	if err != nil {
		// A part named "file" without a filename is parsed as a plain value.
		if form, ferr := c.MultipartForm(); ferr == nil {
			if _, ok := form.Value["file"]; ok {
				return h.uploadError(c, apperr.NoFileSelected())
			}
		}
		return h.uploadError(c, apperr.NoFileProvided())
	}
	if header.Filename == "" {
		return h.uploadError(c, apperr.NoFileSelected())
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		return h.uploadError(c, apperr.InvalidFileType(header.Filename))
	}

	filename := filepath.Base(header.Filename)
	h.log.Info().Str("file", filename).Int64("size", header.Size).Msg("Processing file")

	tmp, err := os.CreateTemp("", "etf-*.csv")
	if err != nil {
		return h.uploadError(c, err)
	}
	path := tmp.Name()
	tmp.Close()
	defer h.removeTemp(path)

	if err := c.SaveFile(header, path); err != nil {
		return h.uploadError(c, err)
	}

	topN := c.QueryInt("top_holdings_count", h.defaultTopCount)

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	resp, err := h.service.ProcessFile(ctx, path, topN)
	if err != nil {
		return h.uploadError(c, err)
	}

	h.observe(0)
	h.log.Info().
		Str("file", filename).
		Int("constituents", len(resp.Constituents)).
		Msg("ETF upload processed")
	return c.JSON(resp)
}

// RefreshCache handles POST /api/etf/admin/refresh
func (h *ETFHandler) RefreshCache(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 60*time.Second)
	defer cancel()

	if err := h.service.RefreshPrices(ctx); err != nil {
		return h.respondError(c, err)
	}

	h.log.Info().Str("request_id", requestID(c)).Msg("Price cache refreshed")
	return c.JSON(fiber.Map{
		"message": "Cache refreshed successfully",
		"time":    time.Now(),
	})
}

func (h *ETFHandler) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.log.Warn().Err(err).Str("path", path).Msg("Failed to remove temporary file")
		return
	}
	h.log.Debug().Str("path", path).Msg("Temporary file removed")
}

func (h *ETFHandler) observe(code int) {
	if h.observer != nil {
		h.observer.ObserveUpload(code)
	}
}

// Ping handles GET /test
func (h *ETFHandler) Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to the API"})
}

// respondError logs the failure at a severity matching its status and writes the
// error body. Anything that is not already a diagnosis becomes Unexpected.
func (h *ETFHandler) respondError(c *fiber.Ctx, err error) error {
	diag := diagnose(err)

	event := h.log.Warn()
	if diag.ServerError() {
		event = h.log.Error().Err(err)
	}
	event.
		Str("kind", diag.Kind.String()).
		Str("request_id", requestID(c)).
		Msg(diag.LogMessage())

	return c.Status(diag.Status).JSON(errorResponse(diag))
}

// uploadError is respondError plus the upload outcome metric.
func (h *ETFHandler) uploadError(c *fiber.Ctx, err error) error {
	h.observe(diagnose(err).Code)
	return h.respondError(c, err)
}

func diagnose(err error) *apperr.Error {
	if diag, ok := apperr.As(err); ok {
		return diag
	}
	return apperr.Unexpected(err)
}

func errorResponse(diag *apperr.Error) models.ErrorResponse {
	return models.ErrorResponse{
		Error:       diag.Message,
		ErrorCode:   diag.Code,
		ErrorDetail: diag.Detail,
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// RateLimitReached answers requests rejected by the limiter middleware.
func RateLimitReached(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
		Error:     "Rate limit exceeded. Please try again later.",
		ErrorCode: fiber.StatusTooManyRequests,
	})
}

// CustomErrorHandler handles Fiber errors
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	if diag, ok := apperr.As(err); ok {
		return c.Status(diag.Status).JSON(errorResponse(diag))
	}

	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		return c.Status(code).JSON(errorResponse(apperr.Unexpected(err)))
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:     err.Error(),
		ErrorCode: code,
	})
}
