package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pestwatch/internal/engine"
	"pestwatch/internal/types"
)

type stubService struct {
	subscribeErr error
	unsubExisted bool
	evalErr      error
}

func (s *stubService) Subscribe(_ context.Context, params engine.SubscribeParams) (types.AlertSubscription, error) {
	if s.subscribeErr != nil {
		return types.AlertSubscription{}, s.subscribeErr
	}
	return types.AlertSubscription{
		SubscriberID: params.SubscriberID,
		Contact:      params.Contact,
		Location:     types.Location{Lat: params.Lat, Lon: params.Lon},
		MinSeverity:  types.RiskLevel(params.MinSeverity),
		Active:       true,
	}, nil
}

func (s *stubService) Unsubscribe(context.Context, string) (bool, error) {
	return s.unsubExisted, nil
}

func (s *stubService) ForceEvaluate(context.Context, float64, float64, string) (types.RiskAssessment, error) {
	if s.evalErr != nil {
		return types.RiskAssessment{}, s.evalErr
	}
	return types.RiskAssessment{
		Level:      types.LevelHigh,
		Score:      0.7,
		Confidence: 0.8,
		Source:     types.SourcePrimaryOnly,
	}, nil
}

func newTestRouter(svc SubscriptionService) *chi.Mux {
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.DiscardHandler)).RegisterRoutes(r)
	return r
}

func TestSubscribeHandler_Created(t *testing.T) {
	r := newTestRouter(&stubService{})

	body := `{"subscriber_id":"farmer-1","contact":"+22990000001","lat":6.45,"lon":2.35,"min_severity":"HIGH"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var sub types.AlertSubscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, "farmer-1", sub.SubscriberID)
	assert.True(t, sub.Active)
}

func TestSubscribeHandler_InvalidJSON(t *testing.T) {
	r := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribeHandler_UnknownFieldRejected(t *testing.T) {
	r := newTestRouter(&stubService{})

	body := `{"subscriber_id":"x","contact":"y","lat":0,"lon":0,"nope":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown field")
}

func TestSubscribeHandler_ServiceErrorMapsToStatus(t *testing.T) {
	r := newTestRouter(&stubService{
		subscribeErr: types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be in [-90, 90]", nil),
	})

	body := `{"subscriber_id":"farmer-1","contact":"c","lat":99,"lon":0}`
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeValidationInvalidLat), resp.Error.Code)
}

func TestUnsubscribeHandler(t *testing.T) {
	r := newTestRouter(&stubService{unsubExisted: true})

	req := httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/farmer-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp unsubscribeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "farmer-1", resp.SubscriberID)
	assert.True(t, resp.Existed)
}

func TestUnsubscribeHandler_IdempotentOnMissing(t *testing.T) {
	r := newTestRouter(&stubService{unsubExisted: false})

	req := httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/nobody", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"existed":false`)
}

func TestEvaluateHandler(t *testing.T) {
	r := newTestRouter(&stubService{})

	body := `{"lat":6.45,"lon":2.35,"subscriber_id":"farmer-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var a types.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, types.LevelHigh, a.Level)
	assert.Equal(t, 0.7, a.Score)
}

func TestEvaluateHandler_UpstreamErrorIsBadGateway(t *testing.T) {
	r := newTestRouter(&stubService{
		evalErr: types.NewAppError(types.ErrCodeProviderUnavailable, "primary provider unreachable", nil),
	})

	body := `{"lat":6.45,"lon":2.35}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestErrorResponse_GenericErrorIsOpaque500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
