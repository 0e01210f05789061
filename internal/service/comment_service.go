package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blogcms/internal/database"
	"blogcms/internal/middleware"
	"blogcms/internal/models"
	"blogcms/internal/notifications"
	"blogcms/internal/observability"
	"blogcms/internal/repository"
	"blogcms/internal/validation"

	"gorm.io/gorm"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	events      notifications.Publisher
}

type SubmitCommentInput struct {
	PostID      uint
	AuthorName  string
	AuthorEmail string
	Content     string
}

// CommentList is one page of the admin moderation queue.
type CommentList struct {
	Comments   []*models.Comment `json:"comments"`
	Pagination models.Pagination `json:"pagination"`
}

func NewCommentService(commentRepo repository.CommentRepository, events notifications.Publisher) *CommentService {
	return &CommentService{commentRepo: commentRepo, events: events}
}

// Submit stores a reader comment. New comments are always pending. The post
// reference is enforced by the store in the same insert.
func (s *CommentService) Submit(ctx context.Context, in SubmitCommentInput) (*models.Comment, error) {
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.AuthorEmail = strings.TrimSpace(in.AuthorEmail)

	if in.PostID == 0 || in.AuthorName == "" || in.AuthorEmail == "" || strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("All fields are required")
	}
	if err := validation.ValidateEmail(in.AuthorEmail); err != nil {
		return nil, models.NewValidationError("Invalid email format")
	}
	if len(in.Content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	comment := &models.Comment{
		PostID:      in.PostID,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Content:     in.Content,
		Status:      models.CommentStatusPending,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, models.NewNotFoundError("Post", in.PostID)
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}

	observability.CommentActions.WithLabelValues("submitted").Inc()
	notifications.PublishBestEffort(ctx, s.events, notifications.EventCommentSubmitted, map[string]any{
		"id":      comment.ID,
		"post_id": comment.PostID,
		"author":  comment.AuthorName,
	})
	return comment, nil
}

// Approve marks a comment approved. Approving twice is not an error.
func (s *CommentService) Approve(ctx context.Context, id uint) error {
	return s.setStatus(ctx, id, models.CommentStatusApproved, "approved")
}

// Reject marks a comment rejected. Rejecting twice is not an error.
func (s *CommentService) Reject(ctx context.Context, id uint) error {
	return s.setStatus(ctx, id, models.CommentStatusRejected, "rejected")
}

func (s *CommentService) setStatus(ctx context.Context, id uint, status, action string) error {
	if err := s.commentRepo.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", id)
		}
		return fmt.Errorf("set comment %d status: %w", id, err)
	}

	observability.CommentActions.WithLabelValues(action).Inc()
	middleware.Logger.InfoContext(ctx, "comment moderated", "comment_id", id, "status", status)
	notifications.PublishBestEffort(ctx, s.events, notifications.EventCommentModerated, map[string]any{
		"id":     id,
		"status": status,
	})
	return nil
}

func (s *CommentService) Delete(ctx context.Context, id uint) error {
	if err := s.commentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", id)
		}
		return fmt.Errorf("delete comment %d: %w", id, err)
	}

	observability.CommentActions.WithLabelValues("deleted").Inc()
	notifications.PublishBestEffort(ctx, s.events, notifications.EventCommentDeleted, map[string]any{"id": id})
	return nil
}

// ListForPost returns the comments of a post in one moderation state,
// oldest first. An empty status means approved.
func (s *CommentService) ListForPost(ctx context.Context, postID uint, status string) ([]*models.Comment, error) {
	if status == "" {
		status = models.CommentStatusApproved
	}
	if !models.ValidCommentStatus(status) {
		return nil, models.NewValidationError("Invalid status. Must be pending, approved or rejected")
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID, status)
	if err != nil {
		return nil, fmt.Errorf("list comments for post %d: %w", postID, err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// ListAll is the admin moderation queue, newest first, optionally filtered
// by status.
func (s *CommentService) ListAll(ctx context.Context, status string, page, limit int) (*CommentList, error) {
	if status != "" && !models.ValidCommentStatus(status) {
		return nil, models.NewValidationError("Invalid status. Must be pending, approved or rejected")
	}
	page, limit = normalizePage(page, limit, DefaultCommentLimit)
	pg := models.NewPagination(page, limit, 0)

	comments, err := s.commentRepo.ListAll(ctx, status, limit, pg.Offset())
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	total, err := s.commentRepo.CountAll(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return &CommentList{Comments: comments, Pagination: models.NewPagination(page, limit, total)}, nil
}

func (s *CommentService) Get(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	return comment, nil
}
