package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"go-chat/backend/models"
	"go-chat/backend/rooms"

	"github.com/gorilla/mux"
)

// CreateRoomRequest 定義創建聊天室的請求體
type CreateRoomRequest struct {
	Capacity int `json:"capacity"`
}

// CreateRoom 處理創建聊天室的請求，回傳聊天室 ID 與 6 位邀請代碼
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	// 請求體可省略，省略或解析失敗時使用預設容量
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		req.Capacity = 0
	}

	room, err := h.rooms.CreateRoom(req.Capacity)
	if err != nil {
		log.Printf("Error creating room: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("Room created: %s (code %s)", room.ID, room.Code)
	sendJSON(w, http.StatusCreated, map[string]any{
		"id":       room.ID,
		"code":     room.Code,
		"capacity": room.Capacity,
	})
}

// ResolveRoom 依邀請代碼查詢聊天室，加入前讓前端先確認聊天室存在
func (h *Handler) ResolveRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := rooms.ValidateCode(code); err != nil {
		sendJSONError(w, "Invalid room code format", http.StatusBadRequest)
		return
	}

	room, ok := h.rooms.GetRoomByCode(code)
	if !ok {
		sendJSONError(w, "Room not found", http.StatusNotFound)
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"id":               room.ID,
		"code":             room.Code,
		"capacity":         room.Capacity,
		"isLocked":         h.rooms.IsLocked(room.ID),
		"participantCount": h.rooms.ParticipantCount(room.ID),
	})
}

// GetRoomMessages 回傳聊天室的訊息歷史(已過期的訊息不會出現)
func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	if _, ok := h.rooms.GetRoom(roomID); !ok {
		sendJSONError(w, "Room not found", http.StatusNotFound)
		return
	}

	msgs := h.messages.GetMessages(roomID)
	if msgs == nil {
		msgs = []*models.Message{}
	}
	sendJSON(w, http.StatusOK, msgs)
}

// GetPinnedMessages 回傳聊天室目前釘選的訊息
func (h *Handler) GetPinnedMessages(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	if _, ok := h.rooms.GetRoom(roomID); !ok {
		sendJSONError(w, "Room not found", http.StatusNotFound)
		return
	}

	msgs := h.messages.GetPinnedMessages(roomID)
	if msgs == nil {
		msgs = []*models.Message{}
	}
	sendJSON(w, http.StatusOK, msgs)
}

// DeleteRoom 顯式拆除聊天室並清除其所有訊息
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	if _, ok := h.rooms.GetRoom(roomID); !ok {
		sendJSONError(w, "Room not found", http.StatusNotFound)
		return
	}

	h.messages.ClearMessages(roomID, false)
	h.rooms.DeleteRoom(roomID)

	log.Printf("Room deleted: %s", roomID)
	sendJSON(w, http.StatusOK, map[string]bool{"success": true})
}
