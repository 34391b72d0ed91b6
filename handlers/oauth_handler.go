package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"go-chat/backend/models"
	"go-chat/backend/utils"
)

// googleUserInfo 是 Google userinfo 端點回傳的欄位子集
type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

const oauthStateCookie = "oauth_state"

// GoogleLogin 把使用者導向 Google 的授權頁面
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	// 產生隨機 state 防止 CSRF，存入短期 cookie 供 callback 驗證
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	state := base64.URLEncoding.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback 處理 Google 授權回呼：換取 token、讀取使用者資訊、
// 更新或建立帳號，最後簽發自己的 JWT
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		sendJSONError(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		sendJSONError(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		log.Printf("OAuth code exchange failed: %v", err)
		sendJSONError(w, "OAuth exchange failed", http.StatusUnauthorized)
		return
	}

	resp, err := h.oauth.Client(ctx, token).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		log.Printf("Failed to fetch Google user info: %v", err)
		sendJSONError(w, "Failed to fetch user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		log.Printf("Failed to decode Google user info: %v", err)
		sendJSONError(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	user, err := h.db.UpsertGoogleUser(ctx, models.User{
		Email:     info.Email,
		Username:  info.Name,
		GoogleID:  info.ID,
		AvatarURL: info.Picture,
	})
	if err != nil {
		log.Printf("Failed to upsert Google user: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	jwtToken, err := utils.GenerateJWT(user.ID.Hex(), user.Username, h.cfg.JWTSecret)
	if err != nil {
		log.Printf("Error generating JWT: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"id":       user.ID.Hex(),
		"username": user.Username,
		"token":    jwtToken,
	})
}
