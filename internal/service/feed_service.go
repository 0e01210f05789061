package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"blogcms/internal/feed"
	"blogcms/internal/featureflags"
	"blogcms/internal/middleware"
	"blogcms/internal/models"
	"blogcms/internal/notifications"
	"blogcms/internal/observability"
	"blogcms/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// WebhookObject is the only webhook object the CMS accepts.
const WebhookObject = "instagram"

// SyncOutcome tags the result of upserting one upstream record.
type SyncOutcome string

const (
	OutcomeInserted SyncOutcome = "inserted"
	OutcomeUpdated  SyncOutcome = "updated"
	OutcomeFailed   SyncOutcome = "failed"
)

// SyncReport is the fold of every record outcome of one sync.
type SyncReport struct {
	Fetched  int
	Inserted int
	Updated  int
	Failed   int
	// FirstError is the first per-record failure, if any.
	FirstError error
}

func (r *SyncReport) add(outcome SyncOutcome, err error) {
	switch outcome {
	case OutcomeInserted:
		r.Inserted++
	case OutcomeUpdated:
		r.Updated++
	default:
		r.Failed++
		if r.FirstError == nil {
			r.FirstError = err
		}
	}
}

// SyncResult is the reply of a manual sync.
type SyncResult struct {
	SyncedCount int `json:"syncedCount"`
	ErrorCount  int `json:"errorCount"`
	TotalPosts  int `json:"totalPosts"`
}

// Result folds the report into the public counters.
func (r SyncReport) Result() SyncResult {
	return SyncResult{
		SyncedCount: r.Inserted + r.Updated,
		ErrorCount:  r.Failed,
		TotalPosts:  r.Fetched,
	}
}

// FeedList is one page of cached feed items.
type FeedList struct {
	Posts      []*models.FeedItem `json:"posts"`
	Pagination models.Pagination  `json:"pagination"`
}

// WebhookPayload is the body of an upstream change notification.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string           `json:"id"`
	Time    int64            `json:"time"`
	Changes []map[string]any `json:"changes"`
}

// FeedSettings is the upstream configuration reported by Setup.
type FeedSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AccessToken  string
	VerifyToken  string
	// SyncTimeout bounds background syncs started by webhooks or the scheduler.
	SyncTimeout time.Duration
}

// SetupInfo tells an admin what is configured.
type SetupInfo struct {
	Message       string            `json:"message"`
	Provider      string            `json:"provider"`
	Steps         []string          `json:"steps"`
	CurrentConfig map[string]string `json:"currentConfig"`
}

// WebhookSetupInfo tells an admin how to register the webhook upstream.
type WebhookSetupInfo struct {
	Message      string   `json:"message"`
	Instructions []string `json:"instructions"`
	WebhookURL   string   `json:"webhookUrl"`
}

type FeedService struct {
	items    repository.FeedItemRepository
	runs     repository.SyncRunRepository
	source   feed.Source
	events   notifications.Publisher
	flags    *featureflags.Manager
	settings FeedSettings
	now      func() time.Time

	background atomic.Bool
}

func NewFeedService(
	items repository.FeedItemRepository,
	runs repository.SyncRunRepository,
	source feed.Source,
	events notifications.Publisher,
	flags *featureflags.Manager,
	settings FeedSettings,
) *FeedService {
	if settings.SyncTimeout <= 0 {
		settings.SyncTimeout = 30 * time.Second
	}
	return &FeedService{
		items:    items,
		runs:     runs,
		source:   source,
		events:   events,
		flags:    flags,
		settings: settings,
		now:      time.Now,
	}
}

// Sync pulls the upstream feed and upserts every record by external id.
// A failed record is counted and the fold moves on; nothing is rolled back.
func (s *FeedService) Sync(ctx context.Context) (*SyncResult, error) {
	source := s.source.Name()
	started := s.now()

	ctx, end := observability.StartSpan(ctx, "service", "feed.sync", attribute.String("feed.source", source))
	var err error
	defer func() { end(err) }()

	var records []feed.Record
	records, err = s.fetch(ctx)
	if err != nil {
		observability.FeedSyncDuration.WithLabelValues(source, "error").Observe(time.Since(started).Seconds())
		return nil, err
	}

	report := SyncReport{Fetched: len(records)}
	for _, rec := range records {
		outcome, recErr := s.upsert(ctx, rec)
		if recErr != nil {
			middleware.Logger.WarnContext(ctx, "feed record sync failed",
				"source", source, "external_id", rec.ExternalID, "error", recErr)
		}
		observability.FeedSyncRecords.WithLabelValues(source, string(outcome)).Inc()
		report.add(outcome, recErr)
	}

	run := &models.FeedSyncRun{
		Source:     source,
		StartedAt:  started,
		FinishedAt: s.now(),
		Inserted:   report.Inserted,
		Updated:    report.Updated,
		Failed:     report.Failed,
		Total:      report.Fetched,
	}
	if report.FirstError != nil {
		run.Error = report.FirstError.Error()
	}
	if runErr := s.runs.Create(ctx, run); runErr != nil {
		middleware.Logger.WarnContext(ctx, "failed to record feed sync run", "error", runErr)
	}

	result := report.Result()
	observability.FeedSyncDuration.WithLabelValues(source, "ok").Observe(time.Since(started).Seconds())
	middleware.Logger.InfoContext(ctx, "feed synchronized",
		"source", source,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"failed", report.Failed,
		"total", report.Fetched,
	)
	notifications.PublishBestEffort(ctx, s.events, notifications.EventFeedSynced, result)
	return &result, nil
}

func (s *FeedService) fetch(ctx context.Context) ([]feed.Record, error) {
	if !s.source.Configured() {
		return nil, models.NewUpstreamAuthError("Feed access token not configured", feed.ErrNotConfigured)
	}
	records, err := s.source.Fetch(ctx)
	if err == nil {
		return records, nil
	}

	if errors.Is(err, feed.ErrNotConfigured) {
		return nil, models.NewUpstreamAuthError("Feed access token not configured", err)
	}
	var statusErr *feed.StatusError
	if errors.As(err, &statusErr) && statusErr.IsAuth() {
		return nil, models.NewUpstreamAuthError("Invalid or expired feed access token", err)
	}
	return nil, models.NewUpstreamError(err)
}

// upsert applies one record and reports what happened to it.
func (s *FeedService) upsert(ctx context.Context, rec feed.Record) (SyncOutcome, error) {
	if strings.TrimSpace(rec.ExternalID) == "" {
		return OutcomeFailed, errors.New("record has no external id")
	}

	var ts time.Time
	if !rec.Undated {
		parsed, err := parseFeedTimestamp(rec.Timestamp)
		if err != nil {
			return OutcomeFailed, err
		}
		ts = parsed
	}

	item := &models.FeedItem{
		ExternalID:        rec.ExternalID,
		Caption:           rec.Caption,
		MediaURL:          rec.MediaURL,
		MediaType:         rec.MediaType,
		Permalink:         rec.Permalink,
		ExternalTimestamp: ts,
	}

	existing, err := s.items.FindByExternalID(ctx, rec.ExternalID)
	switch {
	case err == nil:
		item.ID = existing.ID
		if rec.Undated {
			item.ExternalTimestamp = existing.ExternalTimestamp
		}
		if err := s.items.Update(ctx, item); err != nil {
			return OutcomeFailed, fmt.Errorf("update %s: %w", rec.ExternalID, err)
		}
		return OutcomeUpdated, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if rec.Undated {
			item.ExternalTimestamp = s.now().UTC()
		}
		if err := s.items.Create(ctx, item); err != nil {
			return OutcomeFailed, fmt.Errorf("insert %s: %w", rec.ExternalID, err)
		}
		return OutcomeInserted, nil
	default:
		return OutcomeFailed, fmt.Errorf("look up %s: %w", rec.ExternalID, err)
	}
}

var feedTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	time.RFC1123Z,
	time.RFC1123,
}

// parseFeedTimestamp accepts RFC3339 and the Graph API's "+0000" offset form.
// An empty timestamp is an error.
func parseFeedTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("record has no timestamp")
	}
	for _, layout := range feedTimestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", raw)
}

// SyncInBackground starts a sync detached from any request. It returns false
// when a background sync is already running.
func (s *FeedService) SyncInBackground(reason string) bool {
	if !s.background.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.background.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.SyncTimeout)
		defer cancel()
		if _, err := s.Sync(ctx); err != nil {
			middleware.Logger.Error("background feed sync failed", "reason", reason, "error", err)
		}
	}()
	return true
}

// VerifyHandshake answers the upstream subscription challenge.
func (s *FeedService) VerifyHandshake(mode, token, challenge string) (string, error) {
	if mode == "" || token == "" {
		return "", models.NewValidationError("hub.mode and hub.verify_token are required")
	}
	if mode != "subscribe" || token != s.settings.VerifyToken {
		return "", models.NewForbiddenError("Webhook verification failed")
	}
	return challenge, nil
}

// HandleWebhook accepts a change notification. Changes are logged and, when
// webhook_autosync is on, a background sync is started.
func (s *FeedService) HandleWebhook(ctx context.Context, payload WebhookPayload) error {
	if payload.Object != WebhookObject {
		return &models.AppError{Code: models.CodeNotFound, Message: "Unknown webhook object"}
	}

	changes := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			changes++
			middleware.Logger.InfoContext(ctx, "feed webhook change received",
				"entry_id", entry.ID, "field", change["field"])
		}
	}

	if changes > 0 && s.flags.On(featureflags.WebhookAutoSync) {
		s.SyncInBackground("webhook")
	}
	return nil
}

func (s *FeedService) ListCached(ctx context.Context, page, limit int) (*FeedList, error) {
	page, limit = normalizePage(page, limit, DefaultFeedLimit)
	pg := models.NewPagination(page, limit, 0)

	items, err := s.items.List(ctx, limit, pg.Offset())
	if err != nil {
		return nil, fmt.Errorf("list feed items: %w", err)
	}
	total, err := s.items.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count feed items: %w", err)
	}
	if items == nil {
		items = []*models.FeedItem{}
	}
	return &FeedList{Posts: items, Pagination: models.NewPagination(page, limit, total)}, nil
}

func (s *FeedService) DeleteCached(ctx context.Context, id uint) error {
	if err := s.items.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Feed post", id)
		}
		return fmt.Errorf("delete feed item %d: %w", id, err)
	}
	return nil
}

// Stats counts cached items by media type and reports the last sync time.
func (s *FeedService) Stats(ctx context.Context) (*models.FeedStats, error) {
	byType, err := s.items.CountByMediaType(ctx)
	if err != nil {
		return nil, fmt.Errorf("count feed items by type: %w", err)
	}

	stats := &models.FeedStats{
		Images:    byType[models.FeedMediaImage],
		Videos:    byType[models.FeedMediaVideo],
		Carousels: byType[models.FeedMediaCarousel],
	}
	for _, n := range byType {
		stats.Total += n
	}

	run, err := s.runs.Latest(ctx)
	switch {
	case err == nil:
		finished := run.FinishedAt
		stats.LastSync = &finished
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("latest sync run: %w", err)
	}
	return stats, nil
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

// Setup reports which upstream settings are present. Secrets are never echoed.
func (s *FeedService) Setup() SetupInfo {
	return SetupInfo{
		Message:  "Feed integration setup",
		Provider: s.source.Name(),
		Steps: []string{
			"1. Create an app in the Facebook Developer Console",
			"2. Enable the Instagram Graph API",
			"3. Obtain the client id and client secret",
			"4. Set INSTAGRAM_CLIENT_ID, INSTAGRAM_CLIENT_SECRET, INSTAGRAM_ACCESS_TOKEN and INSTAGRAM_REDIRECT_URI",
			"5. Call POST /api/instagram/sync to import posts",
		},
		CurrentConfig: map[string]string{
			"clientId":     configured(s.settings.ClientID != ""),
			"clientSecret": configured(s.settings.ClientSecret != ""),
			"redirectUri":  configured(s.settings.RedirectURI != ""),
			"accessToken":  configured(s.settings.AccessToken != ""),
			"verifyToken":  configured(s.settings.VerifyToken != ""),
			"source":       configured(s.source.Configured()),
		},
	}
}

// WebhookSetup returns registration instructions. baseURL is the scheme and
// host the request arrived on.
func (s *FeedService) WebhookSetup(baseURL string) WebhookSetupInfo {
	return WebhookSetupInfo{
		Message: "Webhook setup",
		Instructions: []string{
			"1. Register the webhook in the Facebook Developer Console",
			"2. Use the callback URL below",
			"3. Subscribe to the media fields you need",
			"4. Use the configured verify token",
		},
		WebhookURL: strings.TrimRight(baseURL, "/") + "/api/instagram/webhook",
	}
}
