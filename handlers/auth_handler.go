package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"go-chat/backend/database"
	"go-chat/backend/models"
	"go-chat/backend/utils"

	"golang.org/x/crypto/bcrypt" // 用於密碼哈希
)

// RegisterUser 處理帳號註冊請求
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		log.Printf("JSON decode error: %v", err)
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	// 基本的輸入驗證
	if registerReq.Email == "" || registerReq.Username == "" || registerReq.Password == "" {
		sendJSONError(w, "Email, username, and password are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// 先檢查 Email，如果存在則直接返回
	if _, err := h.db.FindUserByEmail(ctx, registerReq.Email); err == nil {
		sendJSONError(w, "Email already registered", http.StatusConflict)
		return
	} else if err != database.ErrUserNotFound {
		log.Printf("Error checking existing email: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 如果 Email 不存在，再檢查 Username
	if _, err := h.db.FindUserByUsername(ctx, registerReq.Username); err == nil {
		sendJSONError(w, "Username already taken", http.StatusConflict)
		return
	} else if err != database.ErrUserNotFound {
		log.Printf("Error checking existing username: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 哈希密碼
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registerReq.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 創建新帳號
	user := models.User{
		Email:    registerReq.Email,
		Username: registerReq.Username,
		Password: string(hashedPassword),
	}

	userID, err := h.db.CreateUser(ctx, user)
	if err != nil {
		log.Printf("Error inserting user: %v", err)
		sendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	log.Printf("User registered successfully: %s", userID)
	sendJSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully",
		"id":      userID,
	})
}

// LoginUser 處理登入請求，成功時簽發 JWT
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		log.Printf("JSON decode error: %v", err)
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if credentials.Email == "" || credentials.Password == "" {
		sendJSONError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.db.FindUserByEmail(ctx, credentials.Email)
	if err != nil {
		if err == database.ErrUserNotFound {
			sendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		} else {
			log.Printf("Error finding user by email: %v", err)
			sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	// 比較哈希後的密碼
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(credentials.Password)); err != nil {
		sendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Username, h.cfg.JWTSecret)
	if err != nil {
		log.Printf("Error generating JWT: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("User logged in successfully: %s", user.Email)
	sendJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"id":       user.ID.Hex(),
		"username": user.Username,
		"token":    token,
	})
}

// GetAllUsers 處理獲取所有帳號列表的請求
func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	users, err := h.db.GetAllUsers(ctx)
	if err != nil {
		log.Printf("Error finding all users: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, users)
}
