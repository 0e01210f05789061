package server

import (
	"blogcms/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeedPosts handles GET /api/instagram/posts
// @Summary List cached feed posts
// @Tags instagram
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size (default 12, max 100)"
// @Success 200 {object} service.FeedList
// @Router /instagram/posts [get]
func (s *Server) GetFeedPosts(c *fiber.Ctx) error {
	page, limit := pageQuery(c)
	list, err := s.feedService.ListCached(c.UserContext(), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// SyncFeed handles POST /api/instagram/sync
// @Summary Synchronize the upstream feed
// @Description Upserts every upstream record by its external id. Record failures are counted, not raised.
// @Tags instagram
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string,syncedCount=int,errorCount=int,totalPosts=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /instagram/sync [post]
func (s *Server) SyncFeed(c *fiber.Ctx) error {
	res, err := s.feedService.Sync(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":     "Sync completed",
		"syncedCount": res.SyncedCount,
		"errorCount":  res.ErrorCount,
		"totalPosts":  res.TotalPosts,
	})
}

// VerifyWebhook handles GET /api/instagram/webhook, the subscription
// handshake. The challenge is echoed as plain text.
// @Summary Webhook verification
// @Tags instagram
// @Produce plain
// @Param hub.mode query string true "Must be subscribe"
// @Param hub.verify_token query string true "Configured verify token"
// @Param hub.challenge query string false "Challenge to echo"
// @Success 200 {string} string
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /instagram/webhook [get]
func (s *Server) VerifyWebhook(c *fiber.Ctx) error {
	challenge, err := s.feedService.VerifyHandshake(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).SendString(challenge)
}

// ReceiveWebhook handles POST /api/instagram/webhook
// @Summary Webhook event
// @Tags instagram
// @Accept json
// @Produce plain
// @Param request body service.WebhookPayload true "Change notification"
// @Success 200 {string} string "EVENT_RECEIVED"
// @Failure 404 {object} models.ErrorResponse
// @Router /instagram/webhook [post]
func (s *Server) ReceiveWebhook(c *fiber.Ctx) error {
	var payload service.WebhookPayload
	if err := parseBody(c, &payload); err != nil {
		return nil
	}
	if err := s.feedService.HandleWebhook(c.UserContext(), payload); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).SendString("EVENT_RECEIVED")
}

// SetupWebhook handles POST /api/instagram/webhook/setup
// @Summary Webhook registration instructions
// @Tags instagram
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.WebhookSetupInfo
// @Router /instagram/webhook/setup [post]
func (s *Server) SetupWebhook(c *fiber.Ctx) error {
	return c.JSON(s.feedService.WebhookSetup(c.BaseURL()))
}

// GetFeedStats handles GET /api/instagram/stats
// @Summary Cached feed statistics
// @Tags instagram
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.FeedStats
// @Router /instagram/stats [get]
func (s *Server) GetFeedStats(c *fiber.Ctx) error {
	stats, err := s.feedService.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetFeedSetup handles GET /api/instagram/setup
// @Summary Feed configuration status
// @Tags instagram
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.SetupInfo
// @Router /instagram/setup [get]
func (s *Server) GetFeedSetup(c *fiber.Ctx) error {
	return c.JSON(s.feedService.Setup())
}

// DeleteFeedPost handles DELETE /api/instagram/posts/:id
// @Summary Remove a cached feed post
// @Tags instagram
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feed post ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /instagram/posts/{id} [delete]
func (s *Server) DeleteFeedPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.feedService.DeleteCached(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Feed post deleted"})
}
