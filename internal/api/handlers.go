// internal/api/handlers.go
package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Corphon/ArtVistas/internal/camera"
	"github.com/Corphon/ArtVistas/internal/catalog"
	apperrors "github.com/Corphon/ArtVistas/internal/errors"
	"github.com/Corphon/ArtVistas/internal/guide"
	"github.com/Corphon/ArtVistas/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxFocusFPS         = 240
	maxFocusDurationMS  = 60_000
	defaultCarouselRing = 5.0
)

// Handler serves the gallery, camera and guide endpoints.
type Handler struct {
	Catalog  *catalog.Catalog
	Guide    *guide.Manager
	Hub      *WebSocketManager
	Response *ResponseHelper

	providerName string
	guideReady   bool
	cameraFPS    int
	chatLimiter  *ChatLimiter
	logger       *zap.Logger
	clock        func() time.Time
}

// HealthCheck reports liveness and whether the guide can answer.
func (h *Handler) HealthCheck(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"status":           "ok",
		"guide_configured": h.guideReady,
		"llm_provider":     h.providerName,
		"guide_sessions":   h.Guide.Len(),
	})
}

// ===============================
// Galleries
// ===============================

// GalleryListItem is the summary returned by the gallery index.
type GalleryListItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ExhibitCount int    `json:"exhibit_count"`
}

func (h *Handler) GetGalleries(c *gin.Context) {
	galleries := h.Catalog.Galleries()
	items := make([]GalleryListItem, 0, len(galleries))
	for _, g := range galleries {
		items = append(items, GalleryListItem{
			ID:           g.ID,
			Name:         g.Name,
			Description:  g.Description,
			ExhibitCount: len(g.Exhibits),
		})
	}
	h.Response.Success(c, items)
}

func (h *Handler) GetGallery(c *gin.Context) {
	g, err := h.Catalog.Gallery(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err, ErrorGalleryNotFound)
		return
	}
	h.Response.Success(c, g)
}

func (h *Handler) GetExhibit(c *gin.Context) {
	galleryID := c.Param("id")
	if _, err := h.Catalog.Gallery(galleryID); err != nil {
		h.Response.HandleError(c, err, ErrorGalleryNotFound)
		return
	}
	e, err := h.Catalog.Exhibit(galleryID, c.Param("exhibit_id"))
	if err != nil {
		h.Response.HandleError(c, err, ErrorExhibitNotFound)
		return
	}
	h.Response.Success(c, e)
}

// FeaturedResponse is the carousel arrangement for a given active item.
type FeaturedResponse struct {
	Active int                       `json:"active"`
	Radius float64                   `json:"radius"`
	Items  []catalog.FeaturedExhibit `json:"items"`
	Slots  []catalog.Slot            `json:"slots"`
}

// GetFeatured lays out the featured carousel. ?active selects the front item
// and ?radius the ring size.
func (h *Handler) GetFeatured(c *gin.Context) {
	items := h.Catalog.Featured()
	carousel := catalog.NewCarousel(items)

	if raw := c.Query("active"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil || !carousel.Select(i) {
			h.Response.Error(c, http.StatusBadRequest, ErrorBadRequest, "active must be an index into the featured list")
			return
		}
	}
	radius := defaultCarouselRing
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
			h.Response.Error(c, http.StatusBadRequest, ErrorBadRequest, "radius must be a positive number")
			return
		}
		radius = r
	}

	h.Response.Success(c, FeaturedResponse{
		Active: carousel.Active(),
		Radius: radius,
		Items:  items,
		Slots:  carousel.Layout(radius),
	})
}

// ===============================
// Camera focus
// ===============================

// FocusRequest selects what to frame: an exhibit of the gallery or a raw
// target. From defaults to the gallery's starting camera.
type FocusRequest struct {
	ExhibitID  string       `json:"exhibit_id"`
	Target     *[3]float64  `json:"target"`
	From       *camera.Pose `json:"from"`
	Standoff   float64      `json:"standoff"`
	DurationMS int          `json:"duration_ms"`
	FPS        int          `json:"fps"`
}

// FocusResponse is a planned run with its sampled frames.
type FocusResponse struct {
	GalleryID  string         `json:"gallery_id"`
	ExhibitID  string         `json:"exhibit_id,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	FPS        int            `json:"fps"`
	Run        camera.Run     `json:"run"`
	Frames     []camera.Frame `json:"frames"`
}

// resolveFocus turns a client request into a camera request for gallery g.
func (h *Handler) resolveFocus(g *catalog.Gallery, exhibitID string, target *[3]float64, standoff float64, durationMS int) (camera.FocusRequest, error) {
	var req camera.FocusRequest
	switch {
	case exhibitID != "":
		e, ok := g.Exhibit(exhibitID)
		if !ok {
			return req, apperrors.NewNotFoundError("exhibit "+exhibitID+" not found in gallery "+g.ID, nil)
		}
		req.Target = e.Target()
	case target != nil:
		req.Target = camera.FromArray(*target)
	default:
		return req, apperrors.NewValidationError("either exhibit_id or target is required", nil)
	}
	if standoff < 0 || math.IsNaN(standoff) || math.IsInf(standoff, 0) {
		return req, apperrors.NewValidationError("standoff must be a non-negative number", nil)
	}
	if durationMS < 0 || durationMS > maxFocusDurationMS {
		return req, apperrors.NewValidationError("duration_ms must be between 0 and 60000", nil)
	}
	req.Standoff = standoff
	req.Duration = time.Duration(durationMS) * time.Millisecond
	return req, nil
}

// PlanFocus plans a focus transition without holding any camera state.
func (h *Handler) PlanFocus(c *gin.Context) {
	g, err := h.Catalog.Gallery(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err, ErrorGalleryNotFound)
		return
	}

	var body FocusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorFocusInvalid, "invalid focus request", err.Error())
		return
	}
	req, err := h.resolveFocus(g, body.ExhibitID, body.Target, body.Standoff, body.DurationMS)
	if err != nil {
		h.Response.HandleError(c, err, ErrorExhibitNotFound)
		return
	}

	fps := body.FPS
	if fps == 0 {
		fps = h.cameraFPS
	}
	if fps < 1 || fps > maxFocusFPS {
		h.Response.Error(c, http.StatusBadRequest, ErrorFocusInvalid, "fps must be between 1 and 240")
		return
	}

	from := g.Camera.Pose()
	if body.From != nil {
		from = *body.From
	}

	run := camera.Plan(req, from, h.clock())
	utils.MetricsCameraFocus(g.ID)

	h.Response.Success(c, FocusResponse{
		GalleryID:  g.ID,
		ExhibitID:  body.ExhibitID,
		DurationMS: run.Duration.Milliseconds(),
		FPS:        fps,
		Run:        run,
		Frames:     camera.Sample(run, fps),
	})
}

// GetWebSocketStatus reports connected sockets by topic.
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.Response.Success(c, h.Hub.GetStatus())
}
