package handlers

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadFile 處理檔案上傳(圖片/語音/一般附件)。
// 檔案以隨機檔名落在 UploadDir 下，回傳的 URL 交給前端
// 透過 send:file 事件帶進聊天室。
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		sendJSONError(w, "File too large or invalid form", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendJSONError(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		log.Printf("Error creating upload directory: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 保留副檔名，但檔名本身換成隨機 ID，避免路徑穿越與撞名
	ext := strings.ToLower(filepath.Ext(header.Filename))
	name := uuid.New().String() + ext
	dstPath := filepath.Join(h.cfg.UploadDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		log.Printf("Error creating upload file: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		log.Printf("Error saving upload file: %v", err)
		os.Remove(dstPath)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("File uploaded: %s (%d bytes)", name, size)
	sendJSON(w, http.StatusCreated, map[string]any{
		"url":      "/uploads/" + name,
		"fileName": header.Filename,
		"fileSize": size,
	})
}
