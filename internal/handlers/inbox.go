package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reclaim/internal/inbox"
	"reclaim/internal/models"
)

// InboxService is the conversation core the HTTP layer drives.
type InboxService interface {
	View(ctx context.Context, userID int, target *inbox.Target) (models.InboxView, error)
	Send(ctx context.Context, in inbox.SendInput) (inbox.Sent, error)
	Archive(ctx context.Context, userID, itemID, counterpartID int, requestID string) (int64, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
}

// formOverhead is the allowance for form fields and multipart framing on top
// of the image size limit.
const formOverhead = 1 << 20

// InboxHandler serves the inbox page data, message submission and archiving.
type InboxHandler struct {
	service InboxService
	images  ImageStore
	maxBody int64
}

// NewInboxHandler builds an InboxHandler. images may be nil to disable
// uploads. A positive maxImageBytes caps the POST /inbox body at that size
// plus form overhead.
func NewInboxHandler(service InboxService, images ImageStore, maxImageBytes int64) *InboxHandler {
	h := &InboxHandler{service: service, images: images}
	if maxImageBytes > 0 {
		h.maxBody = maxImageBytes + formOverhead
	}
	return h
}

// GetInbox returns the conversation list and the active thread. The thread is
// chosen by item_id and recipient_id, which must be given together.
func (h *InboxHandler) GetInbox(c *gin.Context) {
	itemID, hasItem, okItem := optionalID(c.Query("item_id"))
	recipientID, hasRecipient, okRecipient := optionalID(c.Query("recipient_id"))
	if !okItem || !okRecipient {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id and recipient_id must be positive integers"})
		return
	}
	if hasItem != hasRecipient {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id and recipient_id must be provided together"})
		return
	}

	var target *inbox.Target
	if hasItem {
		target = &inbox.Target{ItemID: itemID, CounterpartID: recipientID}
	}

	view, err := h.service.View(c.Request.Context(), c.GetInt("userID"), target)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PostMessage stores a message submitted as a form, optionally with an image.
func (h *InboxHandler) PostMessage(c *gin.Context) {
	if !h.limitBody(c) {
		return
	}

	itemID, _, okItem := optionalID(c.PostForm("item_id"))
	recipientID, _, okRecipient := optionalID(c.PostForm("recipient_id"))
	if !okItem || !okRecipient {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id and recipient_id must be positive integers"})
		return
	}

	imagePath, err := h.saveImage(c)
	if err != nil {
		switch {
		case errors.Is(err, ErrImageTooLarge), errors.Is(err, ErrUnsupportedImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("image upload failed request_id=%s: %v", requestIDFromContext(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		}
		return
	}

	sent, err := h.service.Send(c.Request.Context(), inbox.SendInput{
		SenderID:    c.GetInt("userID"),
		RecipientID: recipientID,
		ItemID:      itemID,
		Content:     c.PostForm("message"),
		ImagePath:   imagePath,
		Source:      "http",
	})
	if err != nil {
		if imagePath != nil {
			_ = h.images.Remove(*imagePath)
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":         sent.Message,
		"conversation_id": inbox.ConversationKey(itemID, sent.Message.SenderID, recipientID),
		"frame":           sent.Frame,
	})
}

// limitBody caps the request body and parses a multipart form up front so an
// oversized upload is refused before it is spooled to disk.
func (h *InboxHandler) limitBody(c *gin.Context) bool {
	if h.maxBody <= 0 {
		return true
	}
	if c.Request.ContentLength > h.maxBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return true
	}
	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		}
		return false
	}
	return true
}

func (h *InboxHandler) saveImage(c *gin.Context) (*string, error) {
	if h.images == nil || !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return nil, nil
	}
	file, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read image field: %w", err)
	}
	path, err := h.images.Save(file)
	if err != nil {
		return nil, err
	}
	return &path, nil
}

type clearRequest struct {
	ItemID      int `json:"item_id"`
	RecipientID int `json:"recipient_id"`
}

// ClearConversation archives a conversation for the caller only.
func (h *InboxHandler) ClearConversation(c *gin.Context) {
	var req clearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON body"})
		return
	}
	if req.ItemID <= 0 || req.RecipientID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "item_id and recipient_id are required"})
		return
	}

	archived, err := h.service.Archive(c.Request.Context(), c.GetInt("userID"), req.ItemID, req.RecipientID, requestIDFromContext(c))
	if err != nil {
		var verr *inbox.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Error()})
		case errors.Is(err, inbox.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "item or recipient not found"})
		default:
			log.Printf("clear conversation failed request_id=%s: %v", requestIDFromContext(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to clear conversation"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Conversation cleared!",
		"archived_count": archived,
		"redirect":       fmt.Sprintf("/inbox?item_id=%d&recipient_id=%d", req.ItemID, req.RecipientID),
	})
}

// UnreadCount returns the inbox badge count.
func (h *InboxHandler) UnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}
