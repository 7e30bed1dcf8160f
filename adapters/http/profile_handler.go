package http

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	mediaUC "github.com/khoahotran/wellness-api/internal/application/usecase/media"
	profileUC "github.com/khoahotran/wellness-api/internal/application/usecase/profile"
	"github.com/khoahotran/wellness-api/pkg/apperror"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

const (
	formFieldName  = "name"
	formFieldPhoto = "profilePhoto"

	// room for the multipart envelope and the name field
	multipartOverhead = 1 << 20
)

type ProfileHandler struct {
	profileUseCase *profileUC.ProfileUseCase
	maxUploadBytes int64
	logger         logger.Logger
}

func NewProfileHandler(uc *profileUC.ProfileUseCase, maxUploadBytes int64, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: uc,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := GetUserIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("userID not found in context"))
		return
	}

	output, err := h.profileUseCase.ExecuteGetProfile(c.Request.Context(), profileUC.GetProfileInput{UserID: userID})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToProfileDTO(output.Profile))
}

// UpdateProfile accepts multipart/form-data with optional name and
// profilePhoto parts, or a JSON body with an optional name.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := GetUserIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("userID not found in context"))
		return
	}

	input := profileUC.UpdateProfileInput{UserID: userID}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch {
	case mediaType == "multipart/form-data":
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
		form, err := c.MultipartForm()
		if err != nil {
			c.Error(h.multipartError(err))
			return
		}
		defer form.RemoveAll()

		name, photo, err := readProfileForm(form)
		if err != nil {
			c.Error(err)
			return
		}
		input.Name = name
		if photo != nil {
			file, err := photo.Open()
			if err != nil {
				c.Error(apperror.NewInternal("failed to open uploaded file", err))
				return
			}
			defer file.Close()
			input.Photo = &mediaUC.StorePhotoInput{
				File:     file,
				Filename: photo.Filename,
				MimeType: photo.Header.Get("Content-Type"),
				Size:     photo.Size,
			}
		}

	case c.Request.ContentLength == 0:
		// nothing to change

	case mediaType == "application/json":
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperror.NewInvalidInput("invalid JSON body for profile update", err))
			return
		}
		input.Name = req.Name

	default:
		c.Error(apperror.NewInvalidInput("Content-Type must be multipart/form-data or application/json", nil))
		return
	}

	output, err := h.profileUseCase.ExecuteUpdateProfile(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, UpdateProfileResponse{
		Msg:          "Profile updated",
		Name:         output.Profile.Name,
		ProfilePhoto: output.Profile.ProfilePhoto,
	})
}

func (h *ProfileHandler) multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.NewInvalidInput("File too large.", err)
	}
	return apperror.NewInvalidInput("invalid multipart body", err)
}

// readProfileForm rejects any part other than one name and one photo.
func readProfileForm(form *multipart.Form) (*string, *multipart.FileHeader, error) {
	for key, values := range form.Value {
		if key != formFieldName {
			return nil, nil, apperror.NewInvalidInput("Unexpected field: "+key, nil)
		}
		if len(values) > 1 {
			return nil, nil, apperror.NewInvalidInput("name must be sent once", nil)
		}
	}
	for key, files := range form.File {
		if key != formFieldPhoto {
			return nil, nil, apperror.NewInvalidInput("Unexpected field: "+key, nil)
		}
		if len(files) > 1 {
			return nil, nil, apperror.NewInvalidInput("Only one profilePhoto may be uploaded", nil)
		}
	}

	var name *string
	if values := form.Value[formFieldName]; len(values) == 1 {
		name = &values[0]
	}
	var photo *multipart.FileHeader
	if files := form.File[formFieldPhoto]; len(files) == 1 {
		photo = files[0]
	}
	return name, photo, nil
}
