package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/khadamat/khadamat/internal/kvstore"
	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/moving"
	"github.com/khadamat/khadamat/internal/observability"
	"github.com/khadamat/khadamat/internal/platform/httpx"
	"github.com/khadamat/khadamat/internal/rotation"
	"github.com/khadamat/khadamat/internal/shared"
	"github.com/khadamat/khadamat/jobs"
)

// ============================================================================
// MOCK DEPENDENCIES
// ============================================================================

type stubAdvertisers struct {
	mu   sync.Mutex
	list []marketplace.Advertiser
	err  error
}

func (s *stubAdvertisers) Advertisers(_ context.Context, sector, _ string) ([]marketplace.Advertiser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]marketplace.Advertiser(nil), s.list...), nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[module+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+key)
	return nil
}

type captureDispatcher struct {
	mu       sync.Mutex
	payloads []jobs.LeadDispatchPayload
	err      error
}

func (c *captureDispatcher) EnqueueLeadDispatch(_ context.Context, p jobs.LeadDispatchPayload) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.payloads = append(c.payloads, p)
	return &asynq.TaskInfo{ID: "lead:" + p.LeadID}, nil
}

func defaultAdvertisers() []marketplace.Advertiser {
	return []marketplace.Advertiser{
		{ID: 1, CompanyName: "Alpha Movers", Phone: "0551111111", Status: "active"},
		{ID: 2, CompanyName: "Beta Movers", Phone: "0110000000", WhatsApp: "0552222222", Status: "active"},
		{ID: 3, CompanyName: "Gamma Movers", Phone: "0553333333", Status: "inactive"},
		{ID: 4, CompanyName: "No Phone Movers", Status: "active"},
	}
}

// ============================================================================
// LEAD ROUTING SUITE
// ============================================================================

type LeadRoutingSuite struct {
	suite.Suite
	advertisers *stubAdvertisers
	idem        *memoryIdempotency
	dispatcher  *captureDispatcher
	store       *kvstore.Memory
	router      http.Handler
	ids         int
}

func (s *LeadRoutingSuite) SetupTest() {
	rates, err := moving.DefaultRateCard()
	s.Require().NoError(err)

	s.advertisers = &stubAdvertisers{list: defaultAdvertisers()}
	s.idem = &memoryIdempotency{keys: map[string]bool{}}
	s.dispatcher = &captureDispatcher{}
	s.store = kvstore.NewMemory()
	s.ids = 0

	svc := NewService(ServiceConfig{
		Estimator:   moving.NewEstimator(rates),
		Advertisers: s.advertisers,
		RoundRobin:  rotation.NewRoundRobin(s.store),
		Idempotency: s.idem,
		Dispatcher:  s.dispatcher,
		Metrics:     observability.NewMetrics(),
	})
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	svc.newID = func() string {
		s.ids++
		return "lead-" + string(rune('0'+s.ids))
	}

	r := chi.NewRouter()
	r.Route("/api/calculator", NewHandler(nil, svc).MountRoutes)
	s.router = r
}

func (s *LeadRoutingSuite) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

const twoBedroomLead = `{
	"customer": {"name": "Fahad", "phone": "0501234567", "from_city": "Riyadh", "to_city": "Jeddah"},
	"move": {"rooms": {"bedroom": 2}, "distance": "local"}
}`

func (s *LeadRoutingSuite) submit(key string) *httptest.ResponseRecorder {
	headers := map[string]string{}
	if key != "" {
		headers["Idempotency-Key"] = key
	}
	return s.do(http.MethodPost, "/api/calculator/leads", twoBedroomLead, headers)
}

func (s *LeadRoutingSuite) TestRateCard() {
	rec := s.do(http.MethodGet, "/api/calculator/rate-card", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var card moving.RateCard
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &card))
	s.Equal("SAR", card.Currency)
}

func (s *LeadRoutingSuite) TestEstimateTwoBedrooms() {
	rec := s.do(http.MethodPost, "/api/calculator/estimate", `{"rooms":{"bedroom":2},"distance":"local"}`, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var quote moving.Quote
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &quote))
	s.Equal(560.0, quote.RoomsCost)
	s.Equal(30, quote.TotalItems)
	s.Equal(960.0, quote.Total)
}

func (s *LeadRoutingSuite) TestEstimateRejectsBadInput() {
	cases := []string{
		`{"rooms":{"garage":1}}`,
		`{"rooms":{"bedroom":51}}`,
		`{"distance":"moon"}`,
		`{"rooms":{"bedroom":1},"unexpected":true}`,
		`{"services":["piano"]}`,
		`not json`,
	}
	for _, body := range cases {
		rec := s.do(http.MethodPost, "/api/calculator/estimate", body, nil)
		s.Equal(http.StatusBadRequest, rec.Code, body)
	}
}

func (s *LeadRoutingSuite) TestLeadsRotateAcrossReachableAdvertisers() {
	var got []int64
	for i := 0; i < 4; i++ {
		rec := s.submit("")
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
		var res LeadResult
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		got = append(got, res.Advertiser.ID)
	}
	s.Equal([]int64{1, 2, 1, 2}, got)

	v, ok, err := s.store.Get(context.Background(), kvstore.KeyLastAdvertiserIndex)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("0", v)
}

func (s *LeadRoutingSuite) TestLeadResultCarriesWhatsAppHandOff() {
	rec := s.submit("")
	s.Require().Equal(http.StatusCreated, rec.Code)
	var res LeadResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))

	s.Equal("lead-1", res.LeadID)
	s.Equal("Alpha Movers", res.Advertiser.CompanyName)
	s.True(strings.HasPrefix(res.Link, "https://wa.me/966551111111?text="), res.Link)
	s.Contains(res.Message, "Fahad")
	s.Contains(res.Message, "960 SAR")

	s.Require().Len(s.dispatcher.payloads, 1)
	p := s.dispatcher.payloads[0]
	s.Equal("lead-1", p.LeadID)
	s.Equal(int64(1), p.AdvertiserID)
	s.Equal("moving", p.Sector)
	s.Equal(960.0, p.Total)
	s.Equal("Alpha Movers", p.AdvertiserName)
}

func (s *LeadRoutingSuite) TestIdempotencyKeyBlocksReplay() {
	first := s.submit("abc-123")
	s.Require().Equal(http.StatusCreated, first.Code)
	second := s.submit("abc-123")
	s.Equal(http.StatusConflict, second.Code)
	s.Len(s.dispatcher.payloads, 1)

	third := s.submit("abc-124")
	s.Equal(http.StatusCreated, third.Code)
}

func (s *LeadRoutingSuite) TestNoAdvertisersReleasesKey() {
	s.advertisers.list = nil
	rec := s.submit("retry-me")
	s.Require().Equal(http.StatusServiceUnavailable, rec.Code)
	var problem httpx.ProblemDetail
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &problem))
	s.Equal("No Advertisers", problem.Title)

	s.advertisers.list = defaultAdvertisers()
	rec = s.submit("retry-me")
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *LeadRoutingSuite) TestUpstreamFailureIsBadGateway() {
	s.advertisers.err = marketplace.ErrUpstream
	rec := s.submit("")
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Empty(s.dispatcher.payloads)
}

func (s *LeadRoutingSuite) TestDispatchFailureDoesNotFailLead() {
	s.dispatcher.err = errors.New("redis down")
	rec := s.submit("")
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *LeadRoutingSuite) TestValidationErrorsListFields() {
	rec := s.do(http.MethodPost, "/api/calculator/leads", `{"customer":{"phone":"12"},"move":{}}`, nil)
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &problem))
	s.Equal("required", problem.Errors["name"])
	s.Equal("min=9", problem.Errors["phone"])
}

func TestLeadRoutingSuite(t *testing.T) {
	suite.Run(t, new(LeadRoutingSuite))
}

// ============================================================================
// UNIT TESTS
// ============================================================================

func TestEstimateRequestConversion(t *testing.T) {
	req := EstimateRequest{Rooms: map[moving.RoomType]int{moving.RoomType("bedroom"): 3}}
	mreq, err := req.toMoving()
	require.NoError(t, err)
	assert.Equal(t, 3, mreq.Rooms[moving.RoomType("bedroom")])
	assert.Len(t, mreq.Rooms, len(moving.RoomTypes))

	_, err = EstimateRequest{Rooms: map[moving.RoomType]int{"garage": 1}}.toMoving()
	require.ErrorIs(t, err, moving.ErrUnknownRoom)
}
