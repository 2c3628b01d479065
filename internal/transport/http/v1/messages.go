package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/conversation"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/transport/http/middleware"
)

// SendMessage stores a patient message.
// POST /api/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	resp, err := h.service.SendMessage(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err, "Failed to send message")
	}
	return ok(c, http.StatusOK, payload{
		"message":         "Message sent successfully",
		"conversation_id": resp.ConversationID,
		"message_id":      resp.MessageID,
	})
}

// GET /api/messages
func (h *Handler) ListMessages(c echo.Context) error {
	messages, err := h.service.ListMessages(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch messages")
	}
	return ok(c, http.StatusOK, payload{"messages": messages})
}

// PUT /api/messages/:id/status
func (h *Handler) UpdateMessageStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err, "")
	}
	var req domain.StatusUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.service.UpdateMessageStatus(c.Request().Context(), id, req.Status); err != nil {
		return h.fail(c, err, "Failed to update status")
	}
	return ok(c, http.StatusOK, payload{"message": "Status updated successfully"})
}

// ReplyToMessage answers one message and marks it replied.
// PUT /api/messages/:id/reply
func (h *Handler) ReplyToMessage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err, "")
	}
	var req domain.MessageReplyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	reply, err := h.service.ReplyToMessage(c.Request().Context(), id, req.AdminReply)
	if err != nil {
		return h.fail(c, err, "Failed to save reply")
	}
	return ok(c, http.StatusOK, payload{
		"message":         "Reply saved successfully",
		"conversation_id": reply.ConversationID,
		"reply":           reply,
	})
}

// DELETE /api/messages/clear-old
func (h *Handler) ClearOldMessages(c echo.Context) error {
	n, err := h.service.ClearOldMessages(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to clear old messages")
	}
	return ok(c, http.StatusOK, payload{"deleted": n, "message": "Old messages cleared"})
}

// DELETE /api/messages/clear-all
func (h *Handler) ClearAllMessages(c echo.Context) error {
	n, err := h.service.ClearAllMessages(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to clear messages")
	}
	return ok(c, http.StatusOK, payload{"deleted": n, "message": "All messages cleared"})
}

// ListConversations returns thread summaries, unread first.
// GET /api/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	summaries, err := h.service.ListConversations(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch conversations")
	}
	return ok(c, http.StatusOK, payload{"conversations": summaries})
}

// GET /api/conversation/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	id := c.Param("conversation_id")
	// Singleton keys are sequential row ids, so only operators may open them.
	if _, single := conversation.SingletonRowID(id); single && middleware.Operator(c, h.service) == "" {
		return h.fail(c, domain.ErrConversationNotFound, "")
	}
	conv, err := h.service.GetConversation(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err, "Failed to fetch conversation")
	}
	return ok(c, http.StatusOK, payload{"conversation": conv})
}

// PUT /api/conversation/:conversation_id/read
func (h *Handler) MarkConversationRead(c echo.Context) error {
	n, err := h.service.MarkConversationRead(c.Request().Context(), c.Param("conversation_id"))
	if err != nil {
		return h.fail(c, err, "Failed to mark conversation read")
	}
	return ok(c, http.StatusOK, payload{"updated": n})
}

// DELETE /api/conversation/:conversation_id
func (h *Handler) DeleteConversation(c echo.Context) error {
	n, err := h.service.DeleteConversation(c.Request().Context(), c.Param("conversation_id"))
	if err != nil {
		return h.fail(c, err, "Failed to delete conversation")
	}
	return ok(c, http.StatusOK, payload{"deleted": n, "message": "Conversation cleared successfully"})
}

// PatientConversations lists the threads a patient name took part in.
// GET /api/patient-conversations?name=
func (h *Handler) PatientConversations(c echo.Context) error {
	summaries, err := h.service.PatientConversations(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch conversations")
	}
	return ok(c, http.StatusOK, payload{"conversations": summaries})
}
