package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"spinwheel/internal/models"
	"spinwheel/internal/registry"
	"spinwheel/internal/render"
	"spinwheel/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

const (
	// ReportFilename is the download name of the winner export.
	ReportFilename = "daily_winners_report.csv"
	// ResetConfirmation must be posted as "confirm" to wipe all data.
	ResetConfirmation = "RESET"

	maxImageBytes = 5 << 20
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the wheel service.
type HTTPHandler struct {
	service   *services.WheelService
	renderer  *render.Renderer
	templates *template.Template
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.WheelService, renderer *render.Renderer, templates *template.Template) *HTTPHandler {
	return &HTTPHandler{
		service:   service,
		renderer:  renderer,
		templates: templates,
	}
}

// renderPage is a helper to perform a two-step template rendering.
// It first executes the content template into a buffer, then executes the main
// layout template, passing the rendered content as a variable.
func (h *HTTPHandler) renderPage(c *gin.Context, pageData gin.H, contentTmpl string) {
	// Step 1: Render the specific page content into a buffer.
	buf := new(bytes.Buffer)
	err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData)
	if err != nil {
		logger.Infof("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	// Step 2: Add the rendered content to the main data map and render the layout.
	pageData["PageContent"] = template.HTML(buf.String())

	c.Header("Content-Type", "text/html; charset=utf-8")
	err = h.templates.ExecuteTemplate(c.Writer, "layout.html", pageData)
	if err != nil {
		logger.Infof("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/", h.ShowIndex)
	router.GET("/healthz", h.Health)
	router.GET("/wheel.png", h.GetWheelImage)
	router.POST("/entry", h.SubmitEntry)
	router.GET("/spin", h.GetSpin)
	router.GET("/spin/stream", h.StreamSpin)

	admin := router.Group("/admin")
	admin.GET("", h.ShowAdmin)
	admin.POST("/prizes", h.SavePrizes)
	admin.POST("/reset", h.ResetData)
	admin.GET("/export", h.ExportResultsCSV)
}

// ShowIndex handles the request for the wheel page.
func (h *HTTPHandler) ShowIndex(c *gin.Context) {
	data := gin.H{
		"title":  "Spin the Wheel",
		"Prizes": h.service.Prizes(),
		"Size":   h.renderer.Size(),
	}
	h.renderPage(c, data, "index.html")
}

// Health reports that the server is up.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// GetWheelImage renders the wheel as PNG. The optional rotation query
// parameter overrides the engine's current angle.
func (h *HTTPHandler) GetWheelImage(c *gin.Context) {
	rotation := h.service.Rotation()
	if v := c.Query("rotation"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.String(http.StatusBadRequest, "Invalid rotation")
			return
		}
		rotation = r
	}

	img := h.renderer.Render(h.service.Prizes(), rotation)

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := render.EncodePNG(c.Writer, img); err != nil {
		logger.Infof("Error encoding wheel image: %v", err)
	}
}

// SubmitEntry handles the entry form and starts a spin for eligible members.
func (h *HTTPHandler) SubmitEntry(c *gin.Context) {
	name := c.PostForm("name")
	membershipID := c.PostForm("membershipId")

	result, err := h.service.SubmitEntry(name, membershipID)
	switch {
	case errors.Is(err, services.ErrInvalidEntry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrSpinInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.Errorf("Error starting spin: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start the spin"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSpin returns the current wheel status.
func (h *HTTPHandler) GetSpin(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status())
}

// StreamSpin pushes frame, settled and prizes events as server-sent events
// until the client goes away.
func (h *HTTPHandler) StreamSpin(c *gin.Context) {
	events, unsubscribe := h.service.Hub().Subscribe()
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		}
	})
}

// ShowAdmin returns the editable prize list and the retained winners.
func (h *HTTPHandler) ShowAdmin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"prizes":  h.service.Prizes(),
		"winners": h.service.Winners(),
	})
}

// SavePrizes handles the admin form. Fields nameN rename slot N and an
// optional file imgN replaces its image.
func (h *HTTPHandler) SavePrizes(c *gin.Context) {
	prizes := h.service.Prizes()
	edits := make([]models.PrizeEdit, 0, len(prizes))

	for i, p := range prizes {
		edit := models.PrizeEdit{Slot: i, Name: p.Name}
		if name, ok := c.GetPostForm(fmt.Sprintf("name%d", i)); ok {
			edit.Name = name
		}

		img, err := readUpload(c, fmt.Sprintf("img%d", i))
		if err != nil {
			c.String(http.StatusBadRequest, "Error reading image for slot %d: %v", i, err)
			return
		}
		edit.Image = img
		edits = append(edits, edit)
	}

	if err := h.service.ApplyEdits(c.Request.Context(), edits); err != nil {
		if errors.Is(err, registry.ErrNotImage) {
			c.String(http.StatusBadRequest, "Upload is not an image: %v", err)
			return
		}
		logger.Errorf("Error saving prizes: %v", err)
		c.String(http.StatusInternalServerError, "Error saving prizes")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings Saved!", "prizes": h.service.Prizes()})
}

// ResetData wipes winners and prizes. It needs confirm=RESET.
func (h *HTTPHandler) ResetData(c *gin.Context) {
	if c.PostForm("confirm") != ResetConfirmation {
		c.String(http.StatusBadRequest, "Reset must be confirmed")
		return
	}

	if err := h.service.Reset(c.Request.Context()); err != nil {
		if errors.Is(err, services.ErrSpinInProgress) {
			c.String(http.StatusConflict, "%v", err)
			return
		}
		logger.Errorf("Error resetting data: %v", err)
		c.String(http.StatusInternalServerError, "Error resetting data")
		return
	}
	c.String(http.StatusOK, "All data has been reset")
}

// ExportResultsCSV handles the request to download the winners as a CSV file.
func (h *HTTPHandler) ExportResultsCSV(c *gin.Context) {
	// BOM keeps Excel on UTF-8
	var buf bytes.Buffer
	buf.WriteString("\xef\xbb\xbf")

	if err := h.service.ExportWinners(&buf); err != nil {
		logger.Errorf("Error writing CSV: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}

	c.Header("Content-Disposition", "attachment;filename="+ReportFilename)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// readUpload returns the bytes of the named file field, or nil when the
// field was not sent.
func readUpload(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > maxImageBytes {
		return nil, fmt.Errorf("file is larger than %d bytes", maxImageBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxImageBytes))
}

// ImageReloader returns a registry change hook that reloads the icon cache.
func ImageReloader(images *render.ImageCache) registry.ChangeFunc {
	return func(ctx context.Context, prizes []models.Prize) {
		if err := images.Load(ctx, prizes); err != nil {
			logger.Warningf("Image reload interrupted: %v", err)
		}
	}
}
