package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/skill-roadmap/internal/cache"
	"github.com/jonathan/skill-roadmap/internal/config"
	"github.com/jonathan/skill-roadmap/internal/llm"
	"github.com/jonathan/skill-roadmap/internal/roadmap"
	"github.com/jonathan/skill-roadmap/internal/server/ratelimit"
	"github.com/jonathan/skill-roadmap/internal/types"
)

const planJSON = `{"title": "Go services", "description": "Build APIs", "steps": [
	{"title": "Syntax", "duration": "1 week"},
	{"title": "net/http"},
	{"title": "Testing"}
]}`

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(_ context.Context, _, model string, _ int) (*llm.Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Text: s.text, Model: model, Attempts: 1}, nil
}

type testServer struct {
	handler http.Handler
	jwt     *JWTService
	skill   types.Skill
	user    uuid.UUID
	token   string
}

func newTestServer(t *testing.T, completer roadmap.Completer, opts ...func(*Config)) *testServer {
	t.Helper()

	repo := roadmap.NewMemoryRepository()
	skill := types.Skill{ID: uuid.New(), Name: "Go", Level: "Beginner", Category: "Programming"}
	repo.AddSkill(skill)

	service := roadmap.NewService(roadmap.NewStore(repo), repo, cache.NewMemoryCache(), completer, "mistral")
	jwtService := NewJWTService(&config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-signing-minimum-32-bytes",
		ExpirationHours: 1,
	})

	cfg := Config{
		Addr:     ":0",
		Roadmaps: service,
		Tokens:   jwtService.AsTokenValidator(),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	user := uuid.New()
	token, err := jwtService.GenerateToken(user)
	require.NoError(t, err)

	return &testServer{
		handler: New(cfg).Handler(),
		jwt:     jwtService,
		skill:   skill,
		user:    user,
		token:   token,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) generate(t *testing.T) types.Roadmap {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/roadmaps/generate", ts.token, map[string]any{
		"skill_id":  ts.skill.ID,
		"goals":     []string{"web apis"},
		"timeframe": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		Roadmap types.Roadmap `json:"roadmap"`
		Source  string        `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result.Roadmap
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	down := newTestServer(t, &stubCompleter{text: planJSON}, func(c *Config) {
		c.HealthCheck = func(context.Context) error { return errors.New("db unreachable") }
	})
	rec = down.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestRoadmapRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})
	id := uuid.New().String()

	routes := []struct{ method, path string }{
		{http.MethodPost, "/roadmaps/generate"},
		{http.MethodGet, "/roadmaps"},
		{http.MethodGet, "/roadmaps/" + id},
		{http.MethodGet, "/roadmaps/by-skill/" + id},
		{http.MethodPut, "/roadmaps/" + id + "/feedback"},
		{http.MethodPut, "/roadmaps/" + id + "/steps/0"},
		{http.MethodPut, "/roadmaps/" + id + "/order"},
		{http.MethodDelete, "/roadmaps/" + id},
	}
	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := ts.do(t, route.method, route.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = ts.do(t, route.method, route.path, "not-a-token", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestGenerate(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})

	rec := ts.do(t, http.MethodPost, "/roadmaps/generate", ts.token, map[string]any{
		"skill_id": ts.skill.ID,
		"goals":    []string{"web apis"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	result := decode[roadmap.GenerateResult](t, rec)
	assert.Equal(t, types.SourceAI, result.Source)
	require.NotNil(t, result.Roadmap)
	assert.Equal(t, ts.user, result.Roadmap.UserID)
	assert.Equal(t, ts.skill.ID, result.Roadmap.SkillID)
	assert.Len(t, result.Roadmap.Steps, 3)

	rec = ts.do(t, http.MethodPost, "/roadmaps/generate", ts.token, map[string]any{
		"skill_id": ts.skill.ID,
		"goals":    []string{"web apis"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, types.SourceCache, decode[roadmap.GenerateResult](t, rec).Source)
}

func TestGenerate_FallbackWhenModelUnavailable(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{err: errors.New("connection refused")})

	rec := ts.do(t, http.MethodPost, "/roadmaps/generate", ts.token, map[string]any{
		"skill_id": ts.skill.ID,
		"goals":    []string{"concurrency"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	result := decode[roadmap.GenerateResult](t, rec)
	assert.Equal(t, types.SourceFallback, result.Source)
	assert.NotEmpty(t, result.Message)
	assert.Len(t, result.Roadmap.Steps, 4)
}

func TestGenerate_BadRequests(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed json", "{not json", http.StatusBadRequest},
		{"no goals", map[string]any{"skill_id": ts.skill.ID, "goals": []string{}}, http.StatusBadRequest},
		{"missing skill", map[string]any{"goals": []string{"x"}}, http.StatusBadRequest},
		{"unknown skill", map[string]any{"skill_id": uuid.New(), "goals": []string{"x"}}, http.StatusNotFound},
		{"body too large", `{"goals": ["` + strings.Repeat("a", maxBodyBytes) + `"]}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/roadmaps/generate", ts.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]any](t, rec)["error"])
		})
	}
}

func TestGetListAndBySkill(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})
	created := ts.generate(t)

	rec := ts.do(t, http.MethodGet, "/roadmaps/"+created.ID.String(), ts.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[types.Roadmap](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/roadmaps/by-skill/"+ts.skill.ID.String(), ts.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[types.Roadmap](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/roadmaps", ts.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Roadmaps []types.Roadmap `json:"roadmaps"`
		Count    int             `json:"count"`
	}](t, rec)
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Roadmaps, 1)

	rec = ts.do(t, http.MethodGet, "/roadmaps/not-a-uuid", ts.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/roadmaps/"+uuid.New().String(), ts.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/roadmaps/by-skill/"+uuid.New().String(), ts.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOtherUsersRoadmapIsForbidden(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})
	created := ts.generate(t)

	otherToken, err := ts.jwt.GenerateToken(uuid.New())
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/roadmaps/"+created.ID.String(), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/roadmaps/"+created.ID.String(), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/roadmaps", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, rec)["count"])
}

func TestUpdateStep(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})
	created := ts.generate(t)
	base := "/roadmaps/" + created.ID.String() + "/steps/"

	rec := ts.do(t, http.MethodPut, base+"0", ts.token, map[string]any{"completed": true, "notes": "done"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[types.Roadmap](t, rec)
	assert.True(t, updated.Steps[0].Completed)
	assert.Equal(t, "done", updated.Steps[0].Notes)
	assert.Equal(t, 33, updated.OverallProgress)

	rec = ts.do(t, http.MethodPut, base+created.Steps[2].ID.String(), ts.token, map[string]any{"title": "Table tests"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Table tests", decode[types.Roadmap](t, rec).Steps[2].Title)

	rec = ts.do(t, http.MethodPut, base+"1", ts.token, map[string]any{"overall_progress": 90})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90, decode[types.Roadmap](t, rec).OverallProgress)

	rec = ts.do(t, http.MethodPut, base+"7", ts.token, map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, base+"-1", ts.token, map[string]any{"completed": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReorder(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})
	created := ts.generate(t)
	path := "/roadmaps/" + created.ID.String() + "/order"

	order := []uuid.UUID{created.Steps[2].ID, created.Steps[0].ID, created.Steps[1].ID}
	rec := ts.do(t, http.MethodPut, path, ts.token, map[string]any{"order": order})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reordered := decode[types.Roadmap](t, rec)
	assert.Equal(t, "Testing", reordered.Steps[0].Title)
	assert.Equal(t, "Syntax", reordered.Steps[1].Title)

	rec = ts.do(t, http.MethodPut, path, ts.token, map[string]any{"order": order[:2]})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "order must list every step id exactly once", decode[map[string]string](t, rec)["error"])
}

func TestReorder_MissingOrder(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})
	created := ts.generate(t)
	path := "/roadmaps/" + created.ID.String() + "/order"

	rec := ts.do(t, http.MethodPut, path, ts.token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation error in Order: failed on the 'required' rule", decode[map[string]string](t, rec)["error"])

	rec = ts.do(t, http.MethodGet, "/roadmaps/"+created.ID.String(), ts.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Syntax", decode[types.Roadmap](t, rec).Steps[0].Title)
}

func TestWriteTimeoutCoversGenerationBudget(t *testing.T) {
	srv := New(Config{Addr: ":0"})
	assert.GreaterOrEqual(t, srv.httpServer.WriteTimeout, llm.GenerationBudget())
}

func TestFeedback(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})
	created := ts.generate(t)
	path := "/roadmaps/" + created.ID.String() + "/feedback"

	rec := ts.do(t, http.MethodPut, path, ts.token, map[string]any{"feedback": "ok", "progress": 40})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	revised := decode[types.Roadmap](t, rec)
	assert.Equal(t, 40, revised.OverallProgress)
	assert.Len(t, revised.Steps, 3)

	rec = ts.do(t, http.MethodPut, path, ts.token, "[")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})
	created := ts.generate(t)
	path := "/roadmaps/" + created.ID.String()

	rec := ts.do(t, http.MethodDelete, path, ts.token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, path, ts.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &stubCompleter{text: planJSON})

	rec := ts.do(t, http.MethodOptions, "/roadmaps/generate", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRateLimitedGeneration(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
	})
	t.Cleanup(limiter.Stop)

	ts := newTestServer(t, &stubCompleter{text: planJSON}, func(c *Config) {
		c.RateLimiter = limiter
	})

	for i := 0; i < 2; i++ {
		ts.generate(t)
	}

	rec := ts.do(t, http.MethodPost, "/roadmaps/generate", ts.token, map[string]any{
		"skill_id": ts.skill.ID,
		"goals":    []string{"web apis"},
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, rec)["error"])

	rec = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health is never limited")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	srv := New(Config{Addr: "127.0.0.1:0", Tokens: NewJWTService(&config.JWTConfig{Secret: "s", ExpirationHours: 1}).AsTokenValidator()})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
