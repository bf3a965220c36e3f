package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"roleplay-server/internal/models"

	"github.com/gin-gonic/gin"
)

// ServeStatic отдает клиентское приложение из dir. Пути, для которых нет файла,
// получают index.html, кроме /api и /ws.
func ServeStatic(router *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || p == "/ws" {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusMethodNotAllowed)
			return
		}

		file := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+p)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	})
}
