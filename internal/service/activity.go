package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/domain/portal"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
)

// ActivityServiceOptions groups dependencies for ActivityService.
type ActivityServiceOptions struct {
	Store   ports.ActivityStore
	Catalog *portal.Catalog
	Now     func() time.Time
}

// ActivityService records and queries sub-application usage.
type ActivityService struct {
	store   ports.ActivityStore
	catalog *portal.Catalog
	now     func() time.Time
}

// NewActivityService constructs a new ActivityService.
func NewActivityService(opts ActivityServiceOptions) *ActivityService {
	s := &ActivityService{store: opts.Store, catalog: opts.Catalog, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TrackInput groups parameters for one usage event.
type TrackInput struct {
	User     domainauth.User
	AppID    string
	Action   string
	Metadata map[string]any
}

// Track records one usage event for the authenticated user.
func (s *ActivityService) Track(ctx context.Context, input TrackInput) error {
	appID := strings.TrimSpace(input.AppID)
	if appID == "" {
		return apperrors.ValidationField("appId", "application id is required")
	}
	action := strings.TrimSpace(input.Action)
	if action == "" {
		return apperrors.ValidationField("action", "action is required")
	}

	appName := ""
	if app, ok := s.catalog.Lookup(appID); ok {
		appName = app.Name
	}

	return s.store.Add(ctx, ports.ActivityRecord{
		ID:        newEntryID(),
		UserEmail: strings.ToLower(input.User.Email),
		UserRole:  input.User.Role,
		AppID:     appID,
		AppName:   appName,
		Action:    action,
		Metadata:  input.Metadata,
		Timestamp: s.now(),
	})
}

// QueryInput groups parameters for an activity query.
type QueryInput struct {
	Email  string
	Limit  int
	Filter string // optional JMESPath expression applied to the record list
}

// Query returns recent activity, newest first, optionally narrowed by a
// JMESPath filter evaluated over the JSON form of the records.
func (s *ActivityService) Query(ctx context.Context, input QueryInput) (any, error) {
	records, err := s.store.Recent(ctx, strings.ToLower(strings.TrimSpace(input.Email)), input.Limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "read activity log")
	}
	if records == nil {
		records = []ports.ActivityRecord{}
	}

	filter := strings.TrimSpace(input.Filter)
	if filter == "" {
		return records, nil
	}

	if _, err := jmespath.Compile(filter); err != nil {
		return nil, apperrors.ValidationField("filter", "invalid JMESPath expression")
	}

	// Round-trip through JSON so the expression sees plain maps and slices.
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode activity records")
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode activity records")
	}

	result, err := jmespath.Search(filter, data)
	if err != nil {
		return nil, apperrors.ValidationField("filter", "filter evaluation failed")
	}
	return result, nil
}
