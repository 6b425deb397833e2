// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Corphon/ArtVistas/internal/camera"
	apperrors "github.com/Corphon/ArtVistas/internal/errors"
	"github.com/Corphon/ArtVistas/internal/guide"
	"github.com/Corphon/ArtVistas/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	wsKindCamera = "camera"
	wsKindGuide  = "guide"
)

func cameraTopic(galleryID string) string { return "camera:" + galleryID }

func guideTopic(sessionID string) string { return "guide:" + sessionID }

// wsInbound is any client frame; fields are used according to Type.
type wsInbound struct {
	Type string `json:"type"`

	// camera
	ExhibitID  string      `json:"exhibit_id,omitempty"`
	Target     *[3]float64 `json:"target,omitempty"`
	Standoff   float64     `json:"standoff,omitempty"`
	DurationMS int         `json:"duration_ms,omitempty"`

	// guide
	Content string `json:"content,omitempty"`
	Persona string `json:"persona,omitempty"`
}

// publishGuideEvent forwards a session event to the sockets watching it.
func (h *Handler) publishGuideEvent(ev guide.Event) {
	h.Hub.BroadcastToTopic(guideTopic(ev.SessionID), "guide_event", ev)
}

// ===============================
// Camera socket
// ===============================

// CameraWebSocket gives each connection its own animated camera in a
// gallery. The server steps the animator at CAMERA_FPS and streams poses
// while a focus run is active.
func (h *Handler) CameraWebSocket(c *gin.Context) {
	g, err := h.Catalog.Gallery(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err, ErrorGalleryNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("camera websocket upgrade failed", zap.Error(err))
		return
	}

	client := newWebSocketClient(conn, wsKindCamera, cameraTopic(g.ID), c.DefaultQuery("client_id", uuid.NewString()))
	h.Hub.Register(client)

	start := g.Camera.Pose()
	animator := camera.NewAnimator(start, camera.WithClock(h.clock))

	go h.Hub.writePump(client)
	go h.cameraFrameLoop(client, animator)

	client.Send("connected", gin.H{
		"gallery_id": g.ID,
		"fov":        g.Camera.FOV,
		"pose":       start,
	})

	h.Hub.readPump(client, func(raw []byte) {
		var msg wsInbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.SendError(ErrorBadRequest, "malformed message")
			return
		}

		switch msg.Type {
		case "focus":
			req, err := h.resolveFocus(g, msg.ExhibitID, msg.Target, msg.Standoff, msg.DurationMS)
			if err != nil {
				client.SendError(wsErrorCode(err), err.Error())
				return
			}
			run := animator.FocusWith(req)
			utils.MetricsCameraFocus(g.ID)
			client.Send("focus_started", gin.H{
				"exhibit_id":  msg.ExhibitID,
				"duration_ms": run.Duration.Milliseconds(),
				"run":         run,
			})
		case "reset":
			animator.Reset(start)
			client.Send("pose", gin.H{"pose": start, "active": false})
		case "tick":
			pose, moved := animator.Tick(h.clock())
			if moved && !animator.Active() {
				client.Send("settled", gin.H{"pose": pose})
				return
			}
			client.Send("pose", gin.H{"pose": pose, "active": animator.Active()})
		case "ping":
			client.Send("pong", nil)
		default:
			client.SendError(ErrorBadRequest, "unknown message type "+msg.Type)
		}
	})
}

func (h *Handler) cameraFrameLoop(client *WebSocketClient, animator *camera.Animator) {
	fps := h.cameraFPS
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-ticker.C:
			if !animator.Active() {
				continue
			}
			pose, moved := animator.Tick(h.clock())
			if !moved {
				continue
			}
			if animator.Active() {
				client.Send("pose", gin.H{"pose": pose, "active": true})
			} else {
				client.Send("settled", gin.H{"pose": pose})
			}
		}
	}
}

// ===============================
// Guide socket
// ===============================

// GuideWebSocket streams a session's events and accepts messages and persona
// changes over the same connection.
func (h *Handler) GuideWebSocket(c *gin.Context) {
	s, err := h.Guide.Get(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err, ErrorSessionNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("guide websocket upgrade failed", zap.Error(err))
		return
	}

	client := newWebSocketClient(conn, wsKindGuide, guideTopic(s.ID()), c.DefaultQuery("client_id", uuid.NewString()))
	h.Hub.Register(client)
	go h.Hub.writePump(client)

	client.Send("connected", s.Snapshot())

	// Submissions made on this socket report their failures to it directly;
	// successes reach every watcher through the session events.
	var pending sync.WaitGroup
	defer pending.Wait()

	h.Hub.readPump(client, func(raw []byte) {
		var msg wsInbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.SendError(ErrorBadRequest, "malformed message")
			return
		}

		switch msg.Type {
		case "message":
			if _, ok := h.chatLimiter.Allow(c, s.ID()); !ok {
				client.SendError(ErrorRateLimited, "Rate limit exceeded")
				return
			}
			_, outcome, err := s.Submit(msg.Content)
			if err != nil {
				client.SendError(wsErrorCode(err), err.Error())
				return
			}
			pending.Add(1)
			go func() {
				defer pending.Done()
				if out := <-outcome; out.Err != nil {
					client.SendError(wsErrorCode(out.Err), out.Err.Error())
				}
			}()
		case "persona":
			p, err := guide.ParsePersona(msg.Persona)
			if err != nil {
				client.SendError(ErrorPersonaInvalid, err.Error())
				return
			}
			if err := s.SetPersona(p); err != nil {
				client.SendError(wsErrorCode(err), err.Error())
			}
		case "snapshot":
			client.Send("snapshot", s.Snapshot())
		case "ping":
			client.Send("pong", nil)
		default:
			client.SendError(ErrorBadRequest, "unknown message type "+msg.Type)
		}
	})
}

// wsErrorCode mirrors HandleError's code selection for socket frames.
func wsErrorCode(err error) string {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return ErrorBadRequest
	case apperrors.ErrorTypeInputRejected:
		switch {
		case errors.Is(err, guide.ErrBusy):
			return ErrorGuideBusy
		case errors.Is(err, guide.ErrSessionClosed):
			return ErrorSessionClosed
		}
		return ErrorEmptyMessage
	case apperrors.ErrorTypeConflict:
		return ErrorConflict
	case apperrors.ErrorTypeNotFound:
		return ErrorNotFound
	case apperrors.ErrorTypeConfiguration:
		return ErrorGuideUnavailable
	case apperrors.ErrorTypeProvider:
		return ErrorProviderFailed
	case apperrors.ErrorTypeTimeout:
		return ErrorProviderTimeout
	default:
		return ErrorInternalError
	}
}
