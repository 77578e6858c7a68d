package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/queryloom/queryloom/internal/database"
	"github.com/queryloom/queryloom/internal/engine"
	"github.com/queryloom/queryloom/internal/knowledge"
	"github.com/queryloom/queryloom/internal/llm"
	"github.com/queryloom/queryloom/internal/testutil"
)

// fakeExecutor is a scripted QueryExecutor.
type fakeExecutor struct {
	result    *database.Result
	execErr   error
	ddl       []string
	ddlErr    error
	tables    []string
	reachable bool

	queries []string
}

func (f *fakeExecutor) Execute(_ context.Context, query string) (*database.Result, error) {
	f.queries = append(f.queries, query)
	if f.execErr != nil {
		return nil, f.execErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &database.Result{Columns: []string{}, Rows: []map[string]any{}}, nil
}

func (f *fakeExecutor) SchemaDDL(_ context.Context) ([]string, error) {
	return f.ddl, f.ddlErr
}

func (f *fakeExecutor) TableNames(_ context.Context) ([]string, error) {
	return f.tables, nil
}

func (f *fakeExecutor) Probe(_ context.Context) bool {
	return f.reachable
}

// newTestServer builds a server whose engines use in-process doubles.
// The chat completer is shared across engines so tests can script it.
func newTestServer(t *testing.T, chat *testutil.ChatCompleter, exec *fakeExecutor) *httptest.Server {
	t.Helper()

	registry := engine.NewRegistry(func(_ context.Context, credential string) (*engine.Engine, error) {
		if credential != "" {
			if err := llm.ValidateAPIKey(credential); err != nil {
				return nil, err
			}
		}
		store, err := knowledge.NewStore(t.TempDir(), &testutil.Embedder{}, nil)
		if err != nil {
			return nil, err
		}
		return engine.New(store, chat), nil
	})

	srv, err := NewServer(ServerConfig{Registry: registry, Executor: exec, RateBurst: 1000})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	chat := &testutil.ChatCompleter{Response: "```sql\nSELECT count(*) FROM users;\n```"}
	ts := newTestServer(t, chat, &fakeExecutor{reachable: true})

	resp := postJSON(t, ts.URL+"/api/v1/generate", `{"question": "How many users?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		SQL *string `json:"sql"`
	}
	decodeJSON(t, resp, &body)
	if body.SQL == nil || *body.SQL != "SELECT count(*) FROM users;" {
		t.Errorf("sql = %v", body.SQL)
	}
}

func TestGenerateEndpointNullSQL(t *testing.T) {
	chat := &testutil.ChatCompleter{Response: "That question cannot be answered from the schema."}
	ts := newTestServer(t, chat, &fakeExecutor{})

	resp := postJSON(t, ts.URL+"/api/v1/generate", `{"question": "What is love?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]any
	decodeJSON(t, resp, &body)
	if sql, present := body["sql"]; !present || sql != nil {
		t.Errorf("sql = %v, want explicit null", sql)
	}
}

func TestGenerateEndpointWithExecute(t *testing.T) {
	chat := &testutil.ChatCompleter{Response: "SELECT id FROM users;"}
	exec := &fakeExecutor{result: &database.Result{
		Columns: []string{"id"},
		Rows:    []map[string]any{{"id": 1}, {"id": 2}},
	}}
	ts := newTestServer(t, chat, exec)

	resp := postJSON(t, ts.URL+"/api/v1/generate", `{"question": "List user ids", "execute": true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		SQL    *string          `json:"sql"`
		Result *database.Result `json:"result"`
	}
	decodeJSON(t, resp, &body)
	if body.Result == nil || len(body.Result.Rows) != 2 {
		t.Errorf("result = %+v", body.Result)
	}
	if len(exec.queries) != 1 || exec.queries[0] != "SELECT id FROM users;" {
		t.Errorf("executed queries = %v", exec.queries)
	}
}

func TestGenerateEndpointMissingQuestion(t *testing.T) {
	ts := newTestServer(t, &testutil.ChatCompleter{}, &fakeExecutor{})

	resp := postJSON(t, ts.URL+"/api/v1/generate", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGenerateEndpointBadCredential(t *testing.T) {
	ts := newTestServer(t, &testutil.ChatCompleter{}, &fakeExecutor{})

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/generate",
		strings.NewReader(`{"question": "anything"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, "sk-wrong-provider")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestExecuteEndpoint(t *testing.T) {
	exec := &fakeExecutor{result: &database.Result{
		Columns: []string{"x"},
		Rows:    []map[string]any{{"x": 1}},
	}}
	ts := newTestServer(t, &testutil.ChatCompleter{}, exec)

	resp := postJSON(t, ts.URL+"/api/v1/execute", `{"sql": "SELECT 1 AS x"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result database.Result
	decodeJSON(t, resp, &result)
	if len(result.Rows) != 1 {
		t.Errorf("rows = %v", result.Rows)
	}
}

func TestExecuteEndpointQueryFailure(t *testing.T) {
	exec := &fakeExecutor{execErr: fmt.Errorf("%w: %v",
		database.ErrQueryExecution, `relation "ghosts" does not exist`)}
	ts := newTestServer(t, &testutil.ChatCompleter{}, exec)

	resp := postJSON(t, ts.URL+"/api/v1/execute", `{"sql": "SELECT * FROM ghosts"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body ErrorResponse
	decodeJSON(t, resp, &body)
	if !strings.Contains(body.Message, `relation "ghosts" does not exist`) {
		t.Errorf("driver message lost: %q", body.Message)
	}
}

func TestExecuteEndpointConnectivityFailure(t *testing.T) {
	exec := &fakeExecutor{execErr: fmt.Errorf("%w: connection refused", database.ErrConnectivity)}
	ts := newTestServer(t, &testutil.ChatCompleter{}, exec)

	resp := postJSON(t, ts.URL+"/api/v1/execute", `{"sql": "SELECT 1"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestTrainEndpoints(t *testing.T) {
	ts := newTestServer(t, &testutil.ChatCompleter{}, &fakeExecutor{})

	tests := []struct {
		path string
		body string
	}{
		{"/api/v1/train/ddl", `{"ddl": "CREATE TABLE users (id INT);"}`},
		{"/api/v1/train/documentation", `{"documentation": "Users are customers."}`},
		{"/api/v1/train/example", `{"question": "Count users", "sql": "SELECT count(*) FROM users;"}`},
	}
	for _, tt := range tests {
		resp := postJSON(t, ts.URL+tt.path, tt.body)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("POST %s status = %d", tt.path, resp.StatusCode)
			continue
		}
		var report trainReport
		decodeJSON(t, resp, &report)
		if report.Trained != 1 {
			t.Errorf("POST %s report = %+v", tt.path, report)
		}
	}

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status struct {
		Database     bool           `json:"database"`
		TrainingData *engine.Counts `json:"training_data"`
	}
	decodeJSON(t, resp, &status)
	if status.TrainingData == nil {
		t.Fatal("training_data is null")
	}
	want := engine.Counts{DDL: 1, Documentation: 1, Examples: 1}
	if *status.TrainingData != want {
		t.Errorf("training_data = %+v, want %+v", *status.TrainingData, want)
	}
}

func TestTrainDDLFromDatabase(t *testing.T) {
	exec := &fakeExecutor{ddl: []string{
		"CREATE TABLE public.users (id integer NOT NULL);",
		"CREATE TABLE public.orders (id integer NOT NULL);",
	}}
	ts := newTestServer(t, &testutil.ChatCompleter{}, exec)

	resp := postJSON(t, ts.URL+"/api/v1/train/ddl", `{"from_db": true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var report trainReport
	decodeJSON(t, resp, &report)
	if report.Trained != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestStatusIncludesTables(t *testing.T) {
	exec := &fakeExecutor{
		reachable: true,
		tables:    []string{"public.orders", "public.users"},
	}
	ts := newTestServer(t, &testutil.ChatCompleter{}, exec)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status struct {
		Database bool     `json:"database"`
		Tables   []string `json:"tables"`
	}
	decodeJSON(t, resp, &status)
	if !status.Database {
		t.Error("database = false, want true")
	}
	if len(status.Tables) != 2 || status.Tables[0] != "public.orders" {
		t.Errorf("tables = %v", status.Tables)
	}
}

func TestTrainDDLMissingInput(t *testing.T) {
	ts := newTestServer(t, &testutil.ChatCompleter{}, &fakeExecutor{})

	resp := postJSON(t, ts.URL+"/api/v1/train/ddl", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	chat := &testutil.ChatCompleter{Response: "SELECT 1;"}
	ts := newTestServer(t, chat, &fakeExecutor{})

	for i := range 3 {
		postJSON(t, ts.URL+"/api/v1/generate",
			fmt.Sprintf(`{"question": "question %d"}`, i))
	}

	resp, err := http.Get(ts.URL + "/api/v1/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var entries []HistoryEntry
	decodeJSON(t, resp, &entries)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Question != "question 2" {
		t.Errorf("entries[0].Question = %q, want newest first", entries[0].Question)
	}
	if entries[0].RowCount != -1 {
		t.Errorf("RowCount = %d, want -1 for generation-only", entries[0].RowCount)
	}
}

func TestHealthProbes(t *testing.T) {
	t.Run("alive", func(t *testing.T) {
		ts := newTestServer(t, &testutil.ChatCompleter{}, &fakeExecutor{})
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("ready", func(t *testing.T) {
		ts := newTestServer(t, &testutil.ChatCompleter{}, &fakeExecutor{reachable: true})
		resp, err := http.Get(ts.URL + "/ready")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		ts := newTestServer(t, &testutil.ChatCompleter{}, &fakeExecutor{reachable: false})
		resp, err := http.Get(ts.URL + "/ready")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &testutil.ChatCompleter{}, &fakeExecutor{})

	resp, err := http.Get(ts.URL + "/api/v1/generate")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestNewServerRequiresDependencies(t *testing.T) {
	if _, err := NewServer(ServerConfig{Executor: &fakeExecutor{}}); err == nil {
		t.Error("NewServer without registry expected error")
	}
	reg := engine.NewRegistry(func(context.Context, string) (*engine.Engine, error) {
		return nil, errors.New("unused")
	})
	if _, err := NewServer(ServerConfig{Registry: reg}); err == nil {
		t.Error("NewServer without executor expected error")
	}
}
