package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/logger"
)

type fakeRunStore struct {
	latest *contracts.RunSummary
	err    error
}

func (f *fakeRunStore) SaveRun(_ context.Context, s *contracts.RunSummary) error {
	f.latest = s
	return nil
}

func (f *fakeRunStore) LatestRun(_ context.Context) (*contracts.RunSummary, error) {
	return f.latest, f.err
}

func testHandler(store contracts.RunStore) *OpsHandler {
	return NewOpsHandler(nil, nil, store, logger.NewWriter(io.Discard, "error"))
}

func TestLatestRunEmpty(t *testing.T) {
	h := testHandler(&fakeRunStore{})

	rec := httptest.NewRecorder()
	h.LatestRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestRunFound(t *testing.T) {
	summary := &contracts.RunSummary{
		Window: contracts.DateWindow{
			Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		},
	}
	h := testHandler(&fakeRunStore{latest: summary})

	rec := httptest.NewRecorder()
	h.LatestRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2024-06-01")
}

func TestLatestQualityMissing(t *testing.T) {
	h := testHandler(&fakeRunStore{latest: &contracts.RunSummary{}})

	rec := httptest.NewRecorder()
	h.LatestQuality(rec, httptest.NewRequest(http.MethodGet, "/api/quality/latest", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerRunRejectsBadRequests(t *testing.T) {
	h := testHandler(&fakeRunStore{})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"missing dates", `{}`},
		{"inverted window", `{"start":"2024-06-03","end":"2024-06-01"}`},
		{"unknown dataset", `{"start":"2024-06-01","end":"2024-06-02","datasets":["wind"]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(tc.body))
			h.TriggerRun(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestParseWindow(t *testing.T) {
	w, err := parseWindow("2024-06-01", "2024-06-08")
	require.NoError(t, err)
	assert.Equal(t, 7, len(w.Days()))

	_, err = parseWindow("junk", "2024-06-08")
	require.Error(t, err)
	assert.True(t, contracts.IsConfigurationError(err))
}
