package engine

import (
	"context"
	"log/slog"
	"strings"

	"pestwatch/internal/registry"
	"pestwatch/internal/types"
)

// Assessor is the pipeline surface the service consumes; satisfied by
// *Evaluator.
type Assessor interface {
	Evaluate(ctx context.Context, loc types.Location, subscriberID string) (types.RiskAssessment, error)
}

// Service is the inbound facade for the conversational front end: subscribe,
// unsubscribe, and on-demand evaluation. Validation happens here so every
// entry point shares it.
type Service struct {
	repo      registry.Repository
	evaluator Assessor
	logger    *slog.Logger
}

// NewService creates the facade.
func NewService(repo registry.Repository, evaluator Assessor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, evaluator: evaluator, logger: logger}
}

// SubscribeParams carries the inbound subscription request.
type SubscribeParams struct {
	SubscriberID string
	Contact      string
	Lat          float64
	Lon          float64
	MinSeverity  string
}

// Subscribe validates the request and upserts the subscription.
func (s *Service) Subscribe(ctx context.Context, params SubscribeParams) (types.AlertSubscription, error) {
	if params.SubscriberID == "" {
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeValidationMissingField, "subscriber_id is required", nil)
	}
	if params.Contact == "" {
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeValidationMissingField, "contact is required", nil)
	}
	if params.Lat < -90 || params.Lat > 90 {
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be in [-90, 90]", nil)
	}
	if params.Lon < -180 || params.Lon > 180 {
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeValidationInvalidLon, "longitude must be in [-180, 180]", nil)
	}

	severity := types.RiskLevel(strings.ToUpper(params.MinSeverity))
	if params.MinSeverity == "" {
		severity = types.LevelModerate
	}
	if !severity.Valid() {
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeValidationInvalidSeverity,
			"min_severity must be one of LOW, MODERATE, HIGH, CRITICAL", nil)
	}

	sub, err := s.repo.Subscribe(ctx, types.AlertSubscription{
		SubscriberID: params.SubscriberID,
		Contact:      params.Contact,
		Location:     types.Location{Lat: params.Lat, Lon: params.Lon},
		MinSeverity:  severity,
	})
	if err != nil {
		return types.AlertSubscription{}, err
	}

	s.logger.InfoContext(ctx, "subscription stored",
		"subscriber_id", sub.SubscriberID,
		"min_severity", string(sub.MinSeverity),
	)
	return sub, nil
}

// Unsubscribe deactivates the subscription, reporting whether an active
// record existed. Idempotent.
func (s *Service) Unsubscribe(ctx context.Context, subscriberID string) (bool, error) {
	if subscriberID == "" {
		return false, types.NewAppError(types.ErrCodeValidationMissingField, "subscriber_id is required", nil)
	}

	existed, err := s.repo.Unsubscribe(ctx, subscriberID)
	if err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "unsubscribe processed",
		"subscriber_id", subscriberID, "existed", existed)
	return existed, nil
}

// ForceEvaluate runs the pipeline once synchronously for the given point and
// returns the assessment without dispatching anything. subscriberID may be
// empty; it only feeds the pest-history lookup.
func (s *Service) ForceEvaluate(ctx context.Context, lat, lon float64, subscriberID string) (types.RiskAssessment, error) {
	if lat < -90 || lat > 90 {
		return types.RiskAssessment{}, types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be in [-90, 90]", nil)
	}
	if lon < -180 || lon > 180 {
		return types.RiskAssessment{}, types.NewAppError(types.ErrCodeValidationInvalidLon, "longitude must be in [-180, 180]", nil)
	}
	return s.evaluator.Evaluate(ctx, types.Location{Lat: lat, Lon: lon}, subscriberID)
}
