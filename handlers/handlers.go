package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"go-chat/backend/config"
	"go-chat/backend/database"
	"go-chat/backend/messages"
	"go-chat/backend/models"
	"go-chat/backend/rooms"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Handler 持有 REST 端點需要的依賴(啟動時注入一次)
type Handler struct {
	db       *database.DB
	cfg      *config.Config
	rooms    *rooms.Store
	messages *messages.Store
	oauth    *oauth2.Config
}

// New 建立 REST 處理器
func New(db *database.DB, cfg *config.Config, roomStore *rooms.Store, msgStore *messages.Store) *Handler {
	return &Handler{
		db:       db,
		cfg:      cfg,
		rooms:    roomStore,
		messages: msgStore,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// sendJSONError 統一發送 JSON 格式錯誤響應
func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	var errorResponse models.ErrorResponse
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResponse.Message = message
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

// sendJSON 發送 JSON 響應
func sendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to write JSON response: %v", err)
	}
}
