package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SendsBearerToken(t *testing.T) {
	var auth string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, GameState{UserID: 7, ProblemID: 1, Target: 5})
	})

	c := NewClient(context.Background(), srv.URL, 7, "tok")
	_, err := c.GameState(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
}

func TestClient_PlayCombined(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/play/7", r.URL.Path)
		writeJSON(w, http.StatusOK, PlayData{
			GameState: &GameState{UserID: 7, ProblemID: 3, Solved: 1, Target: 5},
			Problem:   &Problem{ID: 3, Expression: "2+2", Answer: "4"},
		})
	})

	c := NewClient(context.Background(), srv.URL, 7, "")
	pd, err := c.Play(context.Background())
	require.NoError(t, err)
	assert.True(t, pd.Complete())
	assert.Equal(t, "2+2", pd.Problem.Expression)
}

func TestClient_PlaySplit(t *testing.T) {
	var paths []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/gamestates/7":
			writeJSON(w, http.StatusOK, GameState{UserID: 7, VideoID: 9, Solved: 5, Target: 5})
		case "/videos/9":
			writeJSON(w, http.StatusOK, Video{ID: 9, Title: "cats", URL: "https://example.com/v"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	c := NewClient(context.Background(), srv.URL, 7, "", WithFetchMode(FetchSplit))
	pd, err := c.Play(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/gamestates/7", "/videos/9"}, paths)
	require.NotNil(t, pd.Video)
	assert.Equal(t, "cats", pd.Video.Title)
	assert.Nil(t, pd.Problem)
}

func TestClient_PostEvent(t *testing.T) {
	tests := []struct {
		name     string
		respond  func(w http.ResponseWriter)
		wantNil  bool
		wantProb uint32
	}{
		{
			name:    "empty body",
			respond: func(w http.ResponseWriter) { w.WriteHeader(http.StatusOK) },
			wantNil: true,
		},
		{
			name: "full triple",
			respond: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusOK, PlayData{
					GameState: &GameState{ProblemID: 4, Solved: 2, Target: 5},
					Problem:   &Problem{ID: 4, Expression: "1+3"},
				})
			},
			wantProb: 4,
		},
		{
			name: "bare game state is completed",
			respond: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusOK, GameState{ProblemID: 6, Solved: 2, Target: 5})
			},
			wantProb: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				switch {
				case r.Method == http.MethodPost && r.URL.Path == "/events":
					b, _ := io.ReadAll(r.Body)
					var in EventInput
					require.NoError(t, json.Unmarshal(b, &in))
					assert.Equal(t, EventAnsweredProblem, in.EventType)
					tt.respond(w)
				case r.URL.Path == "/problems/6":
					writeJSON(w, http.StatusOK, Problem{ID: 6, Expression: "3+3"})
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			})

			c := NewClient(context.Background(), srv.URL, 1, "")
			pd, err := c.PostEvent(context.Background(), EventInput{EventType: EventAnsweredProblem, Value: "4"})
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, pd)
				return
			}
			require.NotNil(t, pd)
			require.NotNil(t, pd.Problem)
			assert.Equal(t, tt.wantProb, pd.Problem.ID)
		})
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		rejected  bool
		transient bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad token"}`, true, false},
		{"forbidden", http.StatusForbidden, `{"error":"not enough videos"}`, true, false},
		{"server error", http.StatusInternalServerError, `oops`, false, true},
		{"not found", http.StatusNotFound, ``, false, true},
		{"invalid json", http.StatusOK, `{"problem_id":`, false, true},
		{"schema mismatch", http.StatusOK, `{"problem_id":"x","solved":0,"target":1}`, false, true},
		{"empty body", http.StatusOK, ``, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			c := NewClient(context.Background(), srv.URL, 1, "")
			_, err := c.GameState(context.Background(), 1)
			require.Error(t, err)
			assert.Equal(t, tt.rejected, errors.Is(err, ErrRejected), "rejected")
			assert.Equal(t, tt.transient, IsTransient(err), "transient")
		})
	}
}

func TestClient_RejectedMessage(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not enough videos"})
	})

	c := NewClient(context.Background(), srv.URL, 1, "")
	_, err := c.Play(context.Background())
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusForbidden, rej.StatusCode)
	assert.Equal(t, "not enough videos", rej.Message)
}

func TestClient_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(context.Background(), url, 1, "")
	_, err := c.PostEvent(context.Background(), EventInput{EventType: EventLoggedIn})
	assert.True(t, IsTransient(err))
}

func TestClient_ListEventsChronological(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(s int) time.Time { return base.Add(time.Duration(s) * time.Second) }

	tests := []struct {
		name   string
		events []Event
	}{
		{"oldest first", []Event{
			{Timestamp: at(1), EventType: EventDisplayedProblem, Value: "5"},
			{Timestamp: at(2), EventType: EventAnsweredProblem, Value: "3"},
			{Timestamp: at(3), EventType: EventAnsweredProblem, Value: "7"},
		}},
		{"newest first", []Event{
			{Timestamp: at(3), EventType: EventAnsweredProblem, Value: "7"},
			{Timestamp: at(2), EventType: EventAnsweredProblem, Value: "3"},
			{Timestamp: at(1), EventType: EventDisplayedProblem, Value: "5"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/events/7/3000", r.URL.Path)
				writeJSON(w, http.StatusOK, tt.events)
			})

			c := NewClient(context.Background(), srv.URL, 7, "")
			got, err := c.ListEvents(context.Background(), 7, 3000)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"5", "3", "7"}, []string{got[0].Value, got[1].Value, got[2].Value})
		})
	}
}

func TestClient_ListEventsEqualTimestamps(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		events []Event
	}{
		{"newest first without ids", []Event{
			{Timestamp: ts, EventType: EventAnsweredProblem, Value: "a"},
			{Timestamp: ts, EventType: EventDisplayedProblem, Value: "9"},
			{Timestamp: ts, EventType: EventDisplayedProblem, Value: "8"},
		}},
		{"ids break ties", []Event{
			{ID: 2, Timestamp: ts, EventType: EventDisplayedProblem, Value: "9"},
			{ID: 3, Timestamp: ts, EventType: EventAnsweredProblem, Value: "a"},
			{ID: 1, Timestamp: ts, EventType: EventDisplayedProblem, Value: "8"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.events)
			})

			c := NewClient(context.Background(), srv.URL, 7, "")
			got, err := c.ListEvents(context.Background(), 7, 3000)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"8", "9", "a"}, []string{got[0].Value, got[1].Value, got[2].Value})
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := NewClient(context.Background(), srv.URL, 1, "", WithTimeout(20*time.Millisecond))
	_, err := c.GameState(context.Background(), 1)
	assert.True(t, IsTransient(err))
}

func TestPlayData_Complete(t *testing.T) {
	tests := []struct {
		name string
		pd   *PlayData
		want bool
	}{
		{"nil", nil, false},
		{"no gamestate", &PlayData{}, false},
		{"solving with problem", &PlayData{GameState: &GameState{ProblemID: 1, Solved: 4, Target: 5}, Problem: &Problem{ID: 1}}, true},
		{"solving with stale problem", &PlayData{GameState: &GameState{ProblemID: 2, Solved: 4, Target: 5}, Problem: &Problem{ID: 1}}, false},
		{"rewarding with video", &PlayData{GameState: &GameState{VideoID: 3, Solved: 5, Target: 5}, Video: &Video{ID: 3}}, true},
		{"rewarding without video", &PlayData{GameState: &GameState{VideoID: 3, Solved: 5, Target: 5}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pd.Complete())
		})
	}
}
