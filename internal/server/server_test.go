package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/skill-matcher/internal/engine"
	"github.com/spigell/skill-matcher/internal/failure"
	"github.com/spigell/skill-matcher/internal/matching"
	"github.com/spigell/skill-matcher/internal/metrics"
	"github.com/spigell/skill-matcher/internal/percolation"
)

type fakeEngine struct {
	occupationQuery engine.OccupationQuery
	file            engine.File
	body            string
	limit, offset   int
	err             error
}

func (f *fakeEngine) MatchOccupationsForPerson(_ context.Context, q engine.OccupationQuery) ([]matching.OccupationMatching, error) {
	f.occupationQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return []matching.OccupationMatching{{CategoryID: "catX", CategoryName: "Bakers", Score: 0.3333}}, nil
}

func (f *fakeEngine) MatchSkillsForPersonAndOccupation(_ context.Context, personID, occupationID string) ([]matching.SkillMatching, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []matching.SkillMatching{{ID: occupationID + "-s1", PrefLabel: personID, Score: 1}}, nil
}

func (f *fakeEngine) ExtractSkillsFromDocument(_ context.Context, file engine.File, limit, offset int) (*percolation.Connection, error) {
	f.file, f.limit, f.offset = file, limit, offset
	data, _ := io.ReadAll(file.Reader)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return percolation.NewConnection([]percolation.CandidateSkill{{ID: "s1", PrefLabel: "Go"}, {ID: "s2", PrefLabel: "SQL"}}, limit, offset), nil
}

func (f *fakeEngine) CountExtractableSkills(_ context.Context, file engine.File) (int, error) {
	f.file = file
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func newTestServer(t *testing.T, eng engine.Engine, cfg Config) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return New(zap.New(core), metrics.New(), eng, cfg), logs
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestOccupationMatchings(t *testing.T) {
	eng := &fakeEngine{}
	s, logs := newTestServer(t, eng, Config{})

	rec, body := do(t, s, httptest.NewRequest(http.MethodGet,
		"/persons/p1/occupation-matchings?occupationIds=a,b&occupationIds=c&thresholdScore=0.2&light=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", eng.occupationQuery.PersonID)
	assert.Equal(t, []string{"a", "b", "c"}, eng.occupationQuery.OccupationIDs)
	require.NotNil(t, eng.occupationQuery.ThresholdScore)
	assert.Equal(t, 0.2, *eng.occupationQuery.ThresholdScore)
	assert.True(t, eng.occupationQuery.Light)

	matchings := body["matchings"].([]any)
	require.Len(t, matchings, 1)
	assert.Equal(t, "catX", matchings[0].(map[string]any)["categoryId"])

	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	assert.Equal(t, 1, logs.FilterMessage("request").Len())
}

func TestOccupationMatchingsLegacyFormat(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{}, Config{})

	rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/persons/p1/occupation-matchings?format=legacy", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	encoded, ok := body["matchings"].(string)
	require.True(t, ok, "expected a JSON string, got %T", body["matchings"])
	assert.JSONEq(t, `[{"categoryId":"catX","categoryName":"Bakers","score":0.3333}]`, encoded)
}

func TestOccupationMatchingsBadParameters(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{}, Config{})

	for _, target := range []string{
		"/persons/p1/occupation-matchings?thresholdScore=high",
		"/persons/p1/occupation-matchings?light=maybe",
	} {
		rec, body := do(t, s, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, body["error"], "validation error")
	}
}

func TestSkillMatchings(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{}, Config{})

	rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/persons/p1/occupations/occ9/skill-matchings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	skills := body["skills"].([]any)
	require.Len(t, skills, 1)
	assert.Equal(t, "occ9-s1", skills[0].(map[string]any)["id"])
}

func multipartRequest(t *testing.T, target, contentType, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="cv.txt"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtractSkills(t *testing.T) {
	eng := &fakeEngine{}
	s, _ := newTestServer(t, eng, Config{})

	rec, body := do(t, s, multipartRequest(t, "/cv/skills?limit=1&offset=1", "text/plain", "Go and SQL"))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, eng.limit)
	assert.Equal(t, 1, eng.offset)
	assert.Equal(t, "cv.txt", eng.file.Name)
	assert.Equal(t, "text/plain", eng.file.MIMEType)
	assert.Equal(t, "Go and SQL", eng.body)

	assert.EqualValues(t, 2, body["totalCount"])
	edges := body["edges"].([]any)
	require.Len(t, edges, 1)
	assert.Equal(t, "s2", edges[0].(map[string]any)["node"].(map[string]any)["id"])
}

func TestExtractSkillsDefaultsAndCount(t *testing.T) {
	eng := &fakeEngine{}
	s, _ := newTestServer(t, eng, Config{})

	rec, _ := do(t, s, multipartRequest(t, "/cv/skills", "text/plain", "Go"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultPageSize, eng.limit)
	assert.Equal(t, 0, eng.offset)

	rec, body := do(t, s, multipartRequest(t, "/cv/skills/count", "application/pdf", "%PDF"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "application/pdf", eng.file.MIMEType)
}

func TestExtractSkillsWithoutFile(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/cv/skills/count", strings.NewReader("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	rec, _ := do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, multipartRequest(t, "/cv/skills?limit=ten", "text/plain", "Go"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractSkillsOversizedBody(t *testing.T) {
	eng := &fakeEngine{}
	s, _ := newTestServer(t, eng, Config{MaxUploadSize: 1024})

	content := strings.Repeat("Go developer. ", 3<<20/14)
	for _, target := range []string{"/cv/skills", "/cv/skills/count"} {
		rec, body := do(t, s, multipartRequest(t, target, "text/plain", content))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, target)
		assert.Contains(t, body["error"], "exceeds maximum size", target)
	}
	assert.Nil(t, eng.file.Reader, "engine must not be called")
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: failure.Invalid("personId", "is required"), want: http.StatusBadRequest},
		{err: failure.Extraction("image/png", errors.New("unsupported")), want: http.StatusUnprocessableEntity},
		{err: failure.Retrieval("search", errors.New("connection refused")), want: http.StatusBadGateway},
		{err: fmt.Errorf("searching: %w", failure.Retrieval("search", context.DeadlineExceeded)), want: http.StatusGatewayTimeout},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s, _ := newTestServer(t, &fakeEngine{err: tt.err}, Config{})
			rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/persons/p1/occupations/o1/skill-matchings", nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestRequestIDIsKept(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{}, Config{})

	id := "6f1c1a3e-8f4e-4b4e-9d7a-2d0b7f0f9c11"
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, id)

	rec, body := do(t, s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, id, rec.Header().Get(headerRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{}, Config{})

	do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `skill_matcher_http_requests_total{code="200",method="GET",route="/health"} 1`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, &fakeEngine{}, Config{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
