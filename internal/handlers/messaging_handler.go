package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gearboxe-market/messaging/internal/application"
	"github.com/gearboxe-market/messaging/internal/domain"
	"github.com/gearboxe-market/messaging/internal/middleware"
	"github.com/gearboxe-market/messaging/internal/notify"
	"github.com/gearboxe-market/messaging/internal/transport"
)

const requestTimeout = 5 * time.Second

type MessagingHandler struct {
	svc      *application.Service
	notifier *notify.Notifier
}

func NewMessagingHandler(svc *application.Service, notifier *notify.Notifier) *MessagingHandler {
	return &MessagingHandler{svc: svc, notifier: notifier}
}

type conversationResponse struct {
	ID             string    `json:"conversation_id"`
	VehicleID      string    `json:"vehicle_id"`
	Participant1ID string    `json:"participant1_id"`
	Participant2ID string    `json:"participant2_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
}

type messageResponse struct {
	ID             string    `json:"message_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	VehicleID      string    `json:"vehicle_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	Seq            int64     `json:"seq"`
	CreatedAt      time.Time `json:"created_at"`
}

type inboxEntryResponse struct {
	Conversation conversationResponse `json:"conversation"`
	PeerID       string               `json:"peer_id"`
	PeerName     string               `json:"peer_name"`
	VehicleTitle string               `json:"vehicle_title"`
	LastMessage  messageResponse      `json:"last_message"`
	UnreadCount  int64                `json:"unread_count"`
}

func toConversationResponse(c *domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:             c.ID,
		VehicleID:      c.VehicleID,
		Participant1ID: c.Participant1ID,
		Participant2ID: c.Participant2ID,
		CreatedAt:      c.CreatedAt,
		LastMessageAt:  c.LastMessageAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	resp := messageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		VehicleID:   m.VehicleID,
		Content:     m.Content,
		Read:        m.Read,
		Seq:         m.Seq,
		CreatedAt:   m.CreatedAt,
	}
	if m.ConversationID != nil {
		resp.ConversationID = *m.ConversationID
	}
	return resp
}

func (h *MessagingHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req struct {
		RecipientID    string `json:"recipient_id"`
		VehicleID      string `json:"vehicle_id"`
		Content        string `json:"content"`
		IdempotencyKey string `json:"idempotency_key"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msg, err := h.svc.SendMessage(ctx, application.SendMessageCommand{
		SenderID:    userID,
		RecipientID: req.RecipientID,
		VehicleID:   req.VehicleID,
		Content:     req.Content,
		ClientMsgID: req.IdempotencyKey,
	})
	if err != nil {
		transport.DomainError(ctx, w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, toMessageResponse(msg))
}

func (h *MessagingHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	vehicleID := r.URL.Query().Get("vehicle_id")
	peerID := r.URL.Query().Get("peer_id")
	if vehicleID == "" || peerID == "" {
		transport.WriteError(w, http.StatusBadRequest, "invalid_input", "vehicle_id and peer_id are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	conv, err := h.svc.ConversationByParticipants(ctx, vehicleID, userID, peerID)
	if err != nil {
		transport.DomainError(ctx, w, err)
		return
	}

	// No conversation yet is the normal state before a first message.
	if conv == nil {
		transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"conversation": nil})
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversation": toConversationResponse(conv),
	})
}

func (h *MessagingHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	conversationID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	messages, err := h.svc.ListMessages(ctx, conversationID, userID)
	if err != nil {
		transport.DomainError(ctx, w, err)
		return
	}

	h.writeMessages(w, messages)
}

func (h *MessagingHandler) ListVehicleMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	vehicleID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	messages, err := h.svc.ListMessagesByVehicle(ctx, vehicleID, userID)
	if err != nil {
		transport.DomainError(ctx, w, err)
		return
	}

	h.writeMessages(w, messages)
}

func (h *MessagingHandler) writeMessages(w http.ResponseWriter, messages []*domain.Message) {
	resp := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, toMessageResponse(m))
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"messages": resp})
}

func (h *MessagingHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	conversationID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.MarkConversationRead(ctx, conversationID, userID); err != nil {
		transport.DomainError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MessagingHandler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	messageID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.MarkMessageRead(ctx, messageID, userID); err != nil {
		transport.DomainError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MessagingHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entries, err := h.svc.Inbox(ctx, userID)
	if err != nil {
		transport.DomainError(ctx, w, err)
		return
	}

	resp := make([]inboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, inboxEntryResponse{
			Conversation: toConversationResponse(e.Conversation),
			PeerID:       e.PeerID,
			PeerName:     e.PeerName,
			VehicleTitle: e.VehicleTitle,
			LastMessage:  toMessageResponse(e.LastMessage),
			UnreadCount:  e.UnreadCount,
		})
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"conversations": resp})
}

func (h *MessagingHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	n, err := h.svc.UnreadCount(ctx, userID)
	if err != nil {
		transport.DomainError(ctx, w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]int64{"unread_count": n})
}
