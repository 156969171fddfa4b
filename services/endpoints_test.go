package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/scorably/scorably/models"
	"github.com/scorably/scorably/repository"
	"github.com/scorably/scorably/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEndpointsServer(t *testing.T, repo *repository.GORMRepository, grader Grader) *httptest.Server {
	t.Helper()

	pipeline := newTestPipeline(t, repo, grader)
	endpoints := NewPipelineEndpoints(repo, pipeline)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		endpoints.RegisterRoutes(r)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIngestTranscriptHandler(t *testing.T) {
	repo := newTestRepo(t)
	fixture := seedPipelineFixture(t, repo)
	server := newEndpointsServer(t, repo, &fakeGrader{})

	resp := postJSON(t, server.URL+"/api/v1/transcripts", IngestTranscriptRequest{
		ConnectionID: fixture.connection.ID,
		Text:         longTranscript(),
		MeetingTitle: "Discovery call",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body IngestTranscriptResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Call.ID)
	assert.Equal(t, fixture.agent.ID, body.Call.UserID)
	assert.Equal(t, models.AnalysisStatusPending, body.Call.AnalysisStatus)
}

func TestIngestTranscriptHandler_Validation(t *testing.T) {
	repo := newTestRepo(t)
	seedPipelineFixture(t, repo)
	server := newEndpointsServer(t, repo, &fakeGrader{})

	resp := postJSON(t, server.URL+"/api/v1/transcripts", IngestTranscriptRequest{Text: "no connection"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, server.URL+"/api/v1/transcripts", IngestTranscriptRequest{
		ConnectionID: "missing",
		Text:         "unknown connection",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyzeCallHandler(t *testing.T) {
	repo := newTestRepo(t)
	fixture := seedPipelineFixture(t, repo)
	ctx := context.Background()

	grader := &fakeGrader{answers: []CriterionAnswer{
		{CriterionID: fixture.criterionID(t, "Talk-time balance"), Value: scoring.NumberValue(90)},
		{CriterionID: fixture.criterionID(t, "Accurate pricing"), Value: scoring.BoolValue(true)},
	}}
	server := newEndpointsServer(t, repo, grader)

	transcript := seedTranscript(t, repo, fixture.connection.ID, longTranscript())
	pipeline := newTestPipeline(t, repo, grader)
	call, err := pipeline.Ingest(ctx, transcript.ID)
	require.NoError(t, err)

	resp := postJSON(t, fmt.Sprintf("%s/api/v1/calls/%s/analyze", server.URL, call.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result AnalysisResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.SessionID)

	// Session readable through the API afterwards.
	sessResp, err := http.Get(fmt.Sprintf("%s/api/v1/sessions/%s", server.URL, result.SessionID))
	require.NoError(t, err)
	defer sessResp.Body.Close()
	require.Equal(t, http.StatusOK, sessResp.StatusCode)

	var session models.ScoringSession
	require.NoError(t, json.NewDecoder(sessResp.Body).Decode(&session))
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	assert.Equal(t, string(scoring.PassStatusPass), session.PassStatus)
}

func TestAnalyzeCallHandler_Errors(t *testing.T) {
	repo := newTestRepo(t)
	fixture := seedPipelineFixture(t, repo)
	ctx := context.Background()
	server := newEndpointsServer(t, repo, &fakeGrader{})

	resp := postJSON(t, server.URL+"/api/v1/calls/missing/analyze", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	transcript := seedTranscript(t, repo, fixture.connection.ID, longTranscript())
	pipeline := newTestPipeline(t, repo, &fakeGrader{})
	call, err := pipeline.Ingest(ctx, transcript.ID)
	require.NoError(t, err)

	claimed, err := repo.ClaimCallForAnalysis(ctx, call.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	resp = postJSON(t, fmt.Sprintf("%s/api/v1/calls/%s/analyze", server.URL, call.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetCallsHandler(t *testing.T) {
	repo := newTestRepo(t)
	fixture := seedPipelineFixture(t, repo)
	ctx := context.Background()
	server := newEndpointsServer(t, repo, &fakeGrader{})

	pipeline := newTestPipeline(t, repo, &fakeGrader{})
	for i := 0; i < 2; i++ {
		transcript := seedTranscript(t, repo, fixture.connection.ID, longTranscript())
		_, err := pipeline.Ingest(ctx, transcript.ID)
		require.NoError(t, err)
	}

	resp, err := http.Get(server.URL + "/api/v1/calls?organization_id=" + fixture.org.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body GetCallsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)

	missing, err := http.Get(server.URL + "/api/v1/calls")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestGetCallHandler_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	server := newEndpointsServer(t, repo, &fakeGrader{})

	resp, err := http.Get(server.URL + "/api/v1/calls/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
