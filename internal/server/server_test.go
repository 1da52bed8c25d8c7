package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/email"
	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/store"
)

type runnerFunc func(ctx context.Context, req model.GenerateRequest, sink progress.Sink) (model.Event, error)

func (f runnerFunc) Run(ctx context.Context, req model.GenerateRequest, sink progress.Sink) (model.Event, error) {
	return f(ctx, req, sink)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, req email.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "server.db"), store.Options{})
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func seedList(t *testing.T, st store.Store, name string, leads ...model.Lead) *model.List {
	t.Helper()
	ctx := context.Background()
	list, err := st.CreateList(ctx, name)
	require.NoError(t, err)
	for _, l := range leads {
		id, err := st.InsertLead(ctx, l)
		require.NoError(t, err)
		require.NoError(t, st.LinkLead(ctx, list.ID, id))
	}
	return list
}

// readEvents parses an SSE body into events.
func readEvents(t *testing.T, body []byte) []model.Event {
	t.Helper()
	var events []model.Event
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev model.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestHealth(t *testing.T) {
	srv := New(nil, nil, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := New(nil, nil, nil, Options{})
	h := srv.Handler()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leadgen_http_requests_total")
}

func TestGenerate_StreamsEvents(t *testing.T) {
	var got model.GenerateRequest
	runner := runnerFunc(func(_ context.Context, req model.GenerateRequest, sink progress.Sink) (model.Event, error) {
		got = req
		rep := progress.NewReporter(sink)
		rep.Step(1, "Searching Exa for liquidity signals...")
		rep.Step(4, "Done!")
		ev := model.Event{Leads: []model.Lead{{Name: "Jane"}}, ListID: "list-1", Outcome: model.OutcomeSufficient}
		rep.Result(ev)
		return ev, nil
	})

	srv := New(runner, nil, nil, Options{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"maxResults":7}`))
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	events := readEvents(t, rec.Body.Bytes())
	require.Len(t, events, 3)
	assert.Equal(t, 1, events[0].Step)
	assert.Equal(t, "Done!", events[1].Message)
	assert.Equal(t, model.EventResult, events[2].Type)
	assert.Equal(t, "list-1", events[2].ListID)
	assert.Equal(t, 7, got.MaxResults)
}

func TestGenerate_MalformedBodyRunsWithDefaults(t *testing.T) {
	var got model.GenerateRequest
	runner := runnerFunc(func(_ context.Context, req model.GenerateRequest, sink progress.Sink) (model.Event, error) {
		got = req
		progress.NewReporter(sink).Result(model.Event{})
		return model.Event{}, nil
	})

	srv := New(runner, nil, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{not json`)))

	events := readEvents(t, rec.Body.Bytes())
	require.Len(t, events, 1)
	assert.Equal(t, model.GenerateRequest{}, got)
}

func TestGenerate_TypeMismatchIsRejected(t *testing.T) {
	called := false
	runner := runnerFunc(func(_ context.Context, _ model.GenerateRequest, _ progress.Sink) (model.Event, error) {
		called = true
		return model.Event{}, nil
	})

	srv := New(runner, nil, nil, Options{})
	rec := httptest.NewRecorder()
	body := `{"exaApiKey":"caller-key","referenceUrls":["https://a.example/x"],"maxResults":"7"}`
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body)))

	events := readEvents(t, rec.Body.Bytes())
	require.Len(t, events, 1)
	assert.Equal(t, model.EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "invalid request")
	assert.False(t, called, "a mistyped body must not run with defaults")
}

func TestDecodeGenerateRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    model.GenerateRequest
		wantErr bool
	}{
		{"empty", "", model.GenerateRequest{}, false},
		{"whitespace", "  \n", model.GenerateRequest{}, false},
		{"not json", "{not json", model.GenerateRequest{}, false},
		{"valid", `{"exaApiKey":"k","maxResults":7}`, model.GenerateRequest{ExaAPIKey: "k", MaxResults: 7}, false},
		{"wrong field type", `{"exaApiKey":"k","maxResults":"7"}`, model.GenerateRequest{}, true},
		{"wrong top-level type", `[1,2]`, model.GenerateRequest{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeGenerateRequest([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_PanicBecomesErrorEvent(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, _ model.GenerateRequest, sink progress.Sink) (model.Event, error) {
		progress.NewReporter(sink).Step(1, "starting")
		panic("boom")
	})

	srv := New(runner, nil, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leads", nil))

	events := readEvents(t, rec.Body.Bytes())
	require.Len(t, events, 2)
	assert.Equal(t, model.EventError, events[1].Type)
	assert.Equal(t, "Failed to generate leads", events[1].Message)
}

func TestGenerate_RunOutlivesDisconnect(t *testing.T) {
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	runner := runnerFunc(func(ctx context.Context, _ model.GenerateRequest, sink progress.Sink) (model.Event, error) {
		defer wg.Done()
		rep := progress.NewReporter(sink)
		rep.Step(1, "starting")
		<-release
		runErr = ctx.Err()
		rep.Result(model.Event{})
		return model.Event{}, nil
	})

	srv := New(runner, nil, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/leads", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Handler().ServeHTTP(rec, req)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after disconnect")
	}

	close(release)
	wg.Wait()
	assert.NoError(t, runErr, "run context must not be cancelled by the client")
}

func TestListDetail(t *testing.T) {
	st := newTestStore(t)
	list := seedList(t, st, "Q3 Founders",
		model.Lead{Name: "Jane Doe", Company: "Acme", City: "Toronto", SignalType: model.SignalExit, SourceLink: "https://a"},
	)

	srv := New(nil, st, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists/"+list.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		List  model.List       `json:"list"`
		Leads []map[string]any `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Q3 Founders", body.List.Name)
	require.Len(t, body.Leads, 1)
	assert.Equal(t, "Jane Doe", body.Leads[0]["name"])
	assert.Equal(t, "Exit", body.Leads[0]["signal_type"])
	assert.Equal(t, "https://a", body.Leads[0]["source_link"])
}

func TestListDetail_NotFound(t *testing.T) {
	srv := New(nil, newTestStore(t), nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDetail_NoStore(t *testing.T) {
	srv := New(nil, nil, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists/x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExportCSV(t *testing.T) {
	st := newTestStore(t)
	list := seedList(t, st, "Q3 Founders!",
		model.Lead{Name: "Jane Doe", Company: "Acme, Inc.", City: "Toronto", SourceLink: "https://a"},
	)

	srv := New(nil, st, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists/"+list.ID+"/export.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Q3_Founders.csv"`, rec.Header().Get("Content-Disposition"))
	leads, err := export.ReadCSV(rec.Body)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Acme, Inc.", leads[0].Company)
}

func TestExportXLSX(t *testing.T) {
	st := newTestStore(t)
	list := seedList(t, st, "Run",
		model.Lead{Name: "Jane Doe", Company: "Acme", City: "Toronto", SourceLink: "https://a"},
		model.Lead{Name: "John Roe", Company: "Beta", City: "Ottawa", SourceLink: "https://b"},
	)

	srv := New(nil, st, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lists/"+list.ID+"/export.xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Run.xlsx"`, rec.Header().Get("Content-Disposition"))
	leads, err := export.ReadXLSX(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, leads, 2)
}

func TestGeography(t *testing.T) {
	st := newTestStore(t)
	seedList(t, st, "Run",
		model.Lead{Name: "A", Company: "A", City: "Toronto", SourceLink: "https://a"},
		model.Lead{Name: "B", Company: "B", City: "Ottawa", SourceLink: "https://b"},
		model.Lead{Name: "C", Company: "C", City: "Vancouver", SourceLink: "https://c"},
	)

	srv := New(nil, st, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/geography", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		TotalLeads int `json:"totalLeads"`
		Provinces  []struct {
			Code  string `json:"code"`
			Count int    `json:"count"`
		} `json:"provinces"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.TotalLeads)
	counts := map[string]int{}
	for _, p := range body.Provinces {
		counts[p.Code] = p.Count
	}
	assert.Equal(t, 2, counts["ON"])
	assert.Equal(t, 1, counts["BC"])
}

func emailBody(t *testing.T, req email.Request) *strings.Reader {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return strings.NewReader(string(b))
}

func TestEmail(t *testing.T) {
	leads := []model.Lead{{Name: "Jane", Company: "Acme"}}
	valid := email.Request{Leads: leads, ListName: "Run", RecipientEmail: "ops@example.com"}

	tests := []struct {
		name     string
		req      email.Request
		sendErr  error
		wantCode int
		wantBody string
	}{
		{"success", valid, nil, http.StatusOK, `{"success":true}`},
		{"bad recipient", email.Request{Leads: leads, RecipientEmail: "nope"}, nil, http.StatusBadRequest, ""},
		{"no key", valid, resilience.NewConfigError("RESEND_API_KEY", ""), http.StatusBadRequest,
			`{"error":"No Resend API key configured. Add one in Settings or set RESEND_API_KEY env var."}`},
		{"no leads", valid, email.ErrNoLeads, http.StatusBadRequest, `{"error":"No leads to email."}`},
		{"provider failure", valid, assert.AnError, http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &mockMailer{}
			mailer.On("Send", mock.Anything, mock.Anything).Return("msg-1", tt.sendErr).Maybe()

			srv := New(nil, nil, mailer, Options{})
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/email", emailBody(t, tt.req)))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestEmail_BadJSON(t *testing.T) {
	srv := New(nil, nil, &mockMailer{}, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/email", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	srv := New(nil, nil, nil, Options{AllowedOrigins: []string{"http://localhost:3000"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/leads", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
