package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/KamdynS/go-swarm/chat"
	"github.com/KamdynS/go-swarm/chess"
	"github.com/KamdynS/go-swarm/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	mu    sync.Mutex
	calls []string
	reply string
	err   error
}

func (f *fakeResponder) Respond(ctx context.Context, sessionID, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sessionID+":"+message)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(&fakeResponder{}, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["time"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealthCheckFailure(t *testing.T) {
	s := NewServer(&fakeResponder{}, Config{}, WithHealthCheck(func(ctx context.Context) error {
		return errors.New("database unreachable")
	}))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "database unreachable", body["error"])

	s = NewServer(&fakeResponder{}, Config{}, WithHealthCheck(func(ctx context.Context) error { return nil }))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatKeepsSession(t *testing.T) {
	f := &fakeResponder{reply: "East leads with 72 units."}
	s := NewServer(f, Config{})

	rec := postChat(t, s.Handler(), `{"message":"top region?","session_id":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "East leads with 72 units.", resp.Message)
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, []string{"abc:top region?"}, f.calls)
}

func TestChatAssignsSession(t *testing.T) {
	f := &fakeResponder{reply: "hi"}
	s := NewServer(f, Config{})

	rec := postChat(t, s.Handler(), `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.SessionID, 36)
}

func TestChatBadRequests(t *testing.T) {
	f := &fakeResponder{reply: "unused"}
	s := NewServer(f, Config{})

	for name, body := range map[string]string{
		"invalid json":  `{"message":`,
		"empty message": `{"message":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := postChat(t, s.Handler(), body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ChatResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Empty(t, f.calls)
}

func TestChatResponderErrors(t *testing.T) {
	s := NewServer(&fakeResponder{err: errors.New("model down")}, Config{})
	rec := postChat(t, s.Handler(), `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "model down")

	s = NewServer(&fakeResponder{err: chat.ErrEmptyMessage}, Config{})
	rec = postChat(t, s.Handler(), `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(&fakeResponder{}, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := NewServer(&fakeResponder{reply: "ok"}, Config{RateLimit: 0.001, RateBurst: 1})

	first := postChat(t, s.Handler(), `{"message":"one"}`)
	second := postChat(t, s.Handler(), `{"message":"two"}`)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	s := NewServer(&fakeResponder{reply: "ok"}, Config{EnableCORS: true, AllowedOrigins: []string{"http://app.local"}})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://app.local")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("goswarm_requests_total 1\n"))
	})
	s := NewServer(&fakeResponder{}, Config{}, WithMetrics(metrics))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goswarm_requests_total")
}

func TestChessStreamDisabled(t *testing.T) {
	s := NewServer(&fakeResponder{}, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chess/stream", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			events = append(events, cur)
			cur = sseEvent{}
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func TestChessStream(t *testing.T) {
	model := llmtest.NewMockClient()
	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		model.AddToolCall("make_move", map[string]string{"move": mv}).AddResponse("played " + mv)
	}
	factory := func() (*chess.Game, error) {
		r, err := chess.NewRouter(chess.RouterConfig{Model: model})
		if err != nil {
			return nil, err
		}
		return chess.NewGame(r), nil
	}
	s := NewServer(&fakeResponder{}, Config{}, WithChess(factory))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/chess/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var sb strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&sb)
	require.NoError(t, err)
	events := readEvents(t, sb.String())

	// start, four plies, game over, done
	require.Len(t, events, 7)
	var first, last chess.Transcript
	require.NoError(t, json.Unmarshal([]byte(events[0].data), &first))
	require.NoError(t, json.Unmarshal([]byte(events[5].data), &last))
	assert.Equal(t, "Game Start", first.Prompt)
	assert.Equal(t, "Game Over", last.Prompt)
	assert.Contains(t, last.Reply, "Black wins by checkmate!")
	assert.Equal(t, "done", events[6].name)
	assert.Equal(t, "transcript", events[1].name)
}

func TestChessStreamFactoryError(t *testing.T) {
	s := NewServer(&fakeResponder{}, Config{}, WithChess(func() (*chess.Game, error) {
		return nil, errors.New("no model")
	}))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chess/stream", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
