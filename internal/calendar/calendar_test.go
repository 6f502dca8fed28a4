package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestPlanTaskEvents(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	day := time.Date(2024, 5, 8, 7, 15, 0, 0, loc)

	events := PlanTaskEvents(day, [3]string{"write report", "", "gym"}, 3, [3]string{})
	require.Len(t, events, 2)

	assert.Equal(t, 1, events[0].Slot)
	assert.Equal(t, time.Date(2024, 5, 8, 9, 0, 0, 0, loc), events[0].Event.Start)
	assert.Equal(t, time.Hour, events[0].Event.Duration)
	assert.Equal(t, "Task #1 for 08.05.2024", events[0].Event.Description)

	assert.Equal(t, 3, events[1].Slot)
	assert.Equal(t, time.Date(2024, 5, 8, 8, 0, 0, 0, loc), events[1].Event.Start, "priority goes first thing")
}

func TestPlanTaskEvents_SkipsSynced(t *testing.T) {
	events := PlanTaskEvents(time.Now(), [3]string{"a", "b", ""}, 0, [3]string{"evt-1", "", ""})
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Slot)
}

func TestPlanTaskEvents_TruncatesSummary(t *testing.T) {
	long := strings.Repeat("é", 150)
	events := PlanTaskEvents(time.Now(), [3]string{long, "", ""}, 0, [3]string{})
	require.Len(t, events, 1)
	assert.Equal(t, 100, len([]rune(events[0].Event.Summary)))
}

func TestGoogle_CreateEvent(t *testing.T) {
	var got map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-42"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	g, err := NewGoogle(ctx, "team@example.com",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	start := time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)
	id, err := g.CreateEvent(ctx, Event{Summary: "write report", Start: start, Duration: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "evt-42", id)
	assert.Contains(t, path, "/calendars/team@example.com/events")
	assert.Equal(t, "write report", got["summary"])
	assert.Equal(t, "2024-05-08T10:00:00Z", got["end"].(map[string]any)["dateTime"])
}

func TestCredentialOptions(t *testing.T) {
	assert.Nil(t, CredentialOptions("  "))
	assert.Len(t, CredentialOptions(`{"type":"service_account"}`), 2)
	assert.Len(t, CredentialOptions("/etc/kaizen/key.json"), 2)
}

func TestNoop(t *testing.T) {
	id, err := Noop{}.CreateEvent(context.Background(), Event{})
	require.NoError(t, err)
	assert.Empty(t, id)
}
