// internal/api/guide_handlers.go
package api

import (
	"net/http"
	"strconv"

	"github.com/Corphon/ArtVistas/internal/guide"
	"github.com/gin-gonic/gin"
)

// CreateSessionRequest opens a guide conversation. Persona defaults to the
// curator.
type CreateSessionRequest struct {
	Persona string `json:"persona"`
}

type SetPersonaRequest struct {
	Persona string `json:"persona" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse carries the reply when the caller waited for it, or
// just the accepted user message otherwise.
type SendMessageResponse struct {
	Message *guide.Message  `json:"message"`
	Reply   *guide.Message  `json:"reply,omitempty"`
	Session *guide.Snapshot `json:"session"`
}

func (h *Handler) GetPersonas(c *gin.Context) {
	h.Response.Success(c, guide.Personas())
}

func (h *Handler) CreateGuideSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Response.BadRequest(c, "invalid request body", err.Error())
			return
		}
	}

	persona := guide.DefaultPersona
	if req.Persona != "" {
		p, err := guide.ParsePersona(req.Persona)
		if err != nil {
			h.Response.HandleError(c, err)
			return
		}
		persona = p
	}

	s, err := h.Guide.Create(persona)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	snap := s.Snapshot()
	h.Response.Created(c, snap, "guide session created")
}

func (h *Handler) GetGuideSession(c *gin.Context) {
	s, err := h.Guide.Get(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err, ErrorSessionNotFound)
		return
	}
	h.Response.Success(c, s.Snapshot())
}

func (h *Handler) DeleteGuideSession(c *gin.Context) {
	if err := h.Guide.Delete(c.Param("id")); err != nil {
		h.Response.HandleError(c, err, ErrorSessionNotFound)
		return
	}
	h.Response.Success(c, gin.H{"id": c.Param("id")}, "guide session closed")
}

func (h *Handler) SetGuidePersona(c *gin.Context) {
	s, err := h.Guide.Get(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err, ErrorSessionNotFound)
		return
	}

	var req SetPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorPersonaInvalid, "persona is required", err.Error())
		return
	}
	p, err := guide.ParsePersona(req.Persona)
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorPersonaInvalid, err.Error())
		return
	}
	if err := s.SetPersona(p); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, s.Snapshot())
}

// SendGuideMessage submits visitor text. With ?wait=true the call blocks
// until the guide answers or fails; otherwise it returns 202 at once and the
// reply arrives over the session socket.
func (h *Handler) SendGuideMessage(c *gin.Context) {
	s, err := h.Guide.Get(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err, ErrorSessionNotFound)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	msg, outcome, err := s.Submit(req.Content)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	accepted := &msg

	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))
	if !wait {
		snap := s.Snapshot()
		h.Response.Accepted(c, SendMessageResponse{Message: accepted, Session: &snap}, "message accepted")
		return
	}

	select {
	case out := <-outcome:
		if out.Err != nil {
			h.Response.HandleError(c, out.Err)
			return
		}
		snap := s.Snapshot()
		h.Response.Success(c, SendMessageResponse{Message: accepted, Reply: out.Reply, Session: &snap})
	case <-c.Request.Context().Done():
		// The reply still lands in the transcript.
		c.Abort()
	}
}
