package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/server/middlewares"
	"github.com/pulsefeed/pulsefeed-go/utils"
)

const maxUploadBytes = 10 << 20

var validMediaTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/webm",
	"video/quicktime",
}

func mediaKind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return "unknown"
	}
}

func (s *Server) UploadMedia(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := c.Request.FormFile("media")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !utils.ContainsString(validMediaTypes, contentType) {
		abortWithError(c, http.StatusBadRequest, "Invalid file type")
		return
	}

	filename := uuid.New().String() + filepath.Ext(header.Filename)
	uploadDir := "./uploads"
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create upload directory")
		return
	}
	dst, err := os.Create(filepath.Join(uploadDir, filename))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create file")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to save file")
		return
	}

	c.JSON(http.StatusOK, api.UploadResponse{
		URL:  fmt.Sprintf("/uploads/%s", filename),
		Type: mediaKind(contentType),
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket authenticates via the token query parameter since browsers
// cannot set headers on websocket dials.
func (s *Server) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		abortWithError(c, http.StatusUnauthorized, "Token required")
		return
	}
	userID, err := middlewares.ParseToken(token)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.hub.HandleConnection(conn, userID)
}
