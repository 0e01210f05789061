package server

import (
	"strconv"
	"strings"

	"blogcms/internal/models"
	"blogcms/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/posts/upload
// @Summary Upload a media file
// @Description Multipart field "file", optional "post_id". Images, MP4, WebM and QuickTime only.
// @Tags media
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Media file"
// @Param post_id formData int false "Post to attach the file to"
// @Success 200 {object} object{message=string,file=models.Media}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/upload [post]
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, models.NewValidationError("No file uploaded"))
	}

	var postID *uint
	if raw := strings.TrimSpace(c.FormValue("post_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return respondError(c, models.NewValidationError("Invalid post ID"))
		}
		v := uint(id)
		postID = &v
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	media, err := s.mediaService.Upload(c.UserContext(), service.UploadMediaInput{
		OriginalName: file.Filename,
		MimeType:     file.Header.Get(fiber.HeaderContentType),
		Size:         file.Size,
		Body:         src,
		PostID:       postID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "File uploaded successfully",
		"file":    media,
	})
}

// ListMedia handles GET /api/posts/media/list
// @Summary List uploaded media
// @Tags media
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Media
// @Router /posts/media/list [get]
func (s *Server) ListMedia(c *fiber.Ctx) error {
	media, err := s.mediaService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(media)
}

// DeleteMedia handles DELETE /api/posts/media/:id
// @Summary Delete an uploaded file
// @Tags media
// @Produce json
// @Security BearerAuth
// @Param id path int true "Media ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/media/{id} [delete]
func (s *Server) DeleteMedia(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.mediaService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Media deleted"})
}
