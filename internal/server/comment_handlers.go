package server

import (
	"blogcms/internal/models"
	"blogcms/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	PostID      uint   `json:"post_id"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Content     string `json:"content"`
}

// GetPostComments handles GET /api/comments/post/:postId
// @Summary List the comments of a post
// @Description Approved comments, oldest first. Other statuses require an admin token.
// @Tags comments
// @Produce json
// @Param postId path int true "Post ID"
// @Param status query string false "pending, approved or rejected (default approved)"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Router /comments/post/{postId} [get]
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	status := c.Query("status")
	if status != "" && status != models.CommentStatusApproved {
		if err := s.requireAdminFor(c); err != nil {
			return nil
		}
	}

	comments, err := s.commentService.ListForPost(c.UserContext(), postID, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// SubmitComment handles POST /api/comments
// @Summary Submit a comment
// @Description New comments wait for moderation.
// @Tags comments
// @Accept json
// @Produce json
// @Param request body commentRequest true "Comment"
// @Success 201 {object} object{message=string,commentId=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) SubmitComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Submit(c.UserContext(), service.SubmitCommentInput{
		PostID:      req.PostID,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Content:     req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Comment submitted and awaiting moderation",
		"commentId": comment.ID,
	})
}

// GetAllComments handles GET /api/comments/admin/all
// @Summary Moderation queue
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} service.CommentList
// @Failure 400 {object} models.ErrorResponse
// @Router /comments/admin/all [get]
func (s *Server) GetAllComments(c *fiber.Ctx) error {
	page, limit := pageQuery(c)
	list, err := s.commentService.ListAll(c.UserContext(), c.Query("status"), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetComment handles GET /api/comments/:id
// @Summary Get a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// ApproveComment handles PUT /api/comments/:id/approve
// @Summary Approve a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/approve [put]
func (s *Server) ApproveComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Approve(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment approved"})
}

// RejectComment handles PUT /api/comments/:id/reject
// @Summary Reject a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/reject [put]
func (s *Server) RejectComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Reject(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment rejected"})
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}
