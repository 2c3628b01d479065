package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// Reply stores a reply typed by the operator.
// POST /api/replies
func (h *Handler) Reply(c echo.Context) error {
	var req domain.ReplyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	msg, err := h.service.Reply(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err, "Failed to save reply")
	}
	return ok(c, http.StatusOK, payload{"message_id": msg.ID, "message": "Reply saved successfully"})
}

// CheckReplies runs the mailbox reconciler now.
// GET|POST /api/check-email-replies
func (h *Handler) CheckReplies(c echo.Context) error {
	res, err := h.service.CheckReplies(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to check email replies")
	}
	return ok(c, http.StatusOK, payload{"result": res, "found": res.Imported})
}

// ListUnmatchedReplies lists held replies. ?all=true includes resolved ones.
// GET /api/unmatched-replies
func (h *Handler) ListUnmatchedReplies(c echo.Context) error {
	replies, err := h.service.ListUnmatchedReplies(c.Request().Context(), c.QueryParam("all") == "true")
	if err != nil {
		return h.fail(c, err, "Failed to fetch unmatched replies")
	}
	return ok(c, http.StatusOK, payload{"replies": replies})
}

// AssignUnmatchedReply attaches a held reply to a conversation.
// POST /api/unmatched-replies/:id/assign
func (h *Handler) AssignUnmatchedReply(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, err, "")
	}
	var req domain.AssignReplyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	msg, err := h.service.AssignUnmatchedReply(c.Request().Context(), id, req.ConversationID)
	if errors.Is(err, domain.ErrDuplicateReply) {
		return ok(c, http.StatusOK, payload{"message": "Reply already in conversation", "duplicate": true})
	}
	if err != nil {
		return h.fail(c, err, "Failed to assign reply")
	}
	return ok(c, http.StatusOK, payload{"message_id": msg.ID, "duplicate": false})
}
