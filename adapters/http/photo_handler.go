package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mediaUC "github.com/khoahotran/wellness-api/internal/application/usecase/media"
)

type PhotoHandler struct {
	openPhotoUC *mediaUC.OpenPhotoUseCase
}

func NewPhotoHandler(openUC *mediaUC.OpenPhotoUseCase) *PhotoHandler {
	return &PhotoHandler{openPhotoUC: openUC}
}

// ServePhoto streams a stored upload. File names are unique and never
// rewritten, so responses can be cached for good.
func (h *PhotoHandler) ServePhoto(c *gin.Context) {
	output, err := h.openPhotoUC.Execute(c.Request.Context(), c.Param("filename"))
	if err != nil {
		c.Error(err)
		return
	}
	defer output.Body.Close()

	size := output.Info.Size
	if size <= 0 {
		size = -1
	}
	contentType := output.Info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, size, contentType, output.Body, map[string]string{
		"Cache-Control":          "public, max-age=31536000, immutable",
		"X-Content-Type-Options": "nosniff",
	})
}
