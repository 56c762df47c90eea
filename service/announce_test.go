package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeEngine fails the first failures announcements, and records every request
type fakeEngine struct {
	mu       sync.Mutex
	failures int
	posts    []Descriptor
	deletes  []string
}

func (e *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch r.Method {
	case http.MethodPost:
		if r.URL.Path != "/services" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if e.failures > 0 {
			e.failures--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var d Descriptor
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		e.posts = append(e.posts, d)
	case http.MethodDelete:
		e.deletes = append(e.deletes, r.URL.Path)
	}
}

func TestAnnounceRetries(t *testing.T) {
	engine := &fakeEngine{failures: 2}
	srv := httptest.NewServer(engine)
	defer srv.Close()

	a := &Announcer{
		Engines:    []string{srv.URL + "/"},
		Retries:    3,
		Delay:      time.Millisecond,
		Descriptor: NewDescriptor("http://me:8080"),
	}
	require.Equal(t, []string{srv.URL + "/"}, a.Announce(context.Background()))
	require.Len(t, engine.posts, 1)
	require.Equal(t, "pdf-orientation-correction", engine.posts[0].Slug)
	require.Equal(t, "http://me:8080", engine.posts[0].URL)
	require.Equal(t, []FieldDescription{{Name: "PDF", Type: []string{MimePDF}}}, engine.posts[0].DataInFields)

	a.Withdraw(context.Background())
	require.Equal(t, []string{"/services/pdf-orientation-correction"}, engine.deletes)
}

func TestAnnounceGivesUp(t *testing.T) {
	broken := &fakeEngine{failures: 100}
	good := &fakeEngine{}
	brokenSrv := httptest.NewServer(broken)
	defer brokenSrv.Close()
	goodSrv := httptest.NewServer(good)
	defer goodSrv.Close()

	a := &Announcer{
		Engines:    []string{brokenSrv.URL, goodSrv.URL},
		Retries:    2,
		Descriptor: NewDescriptor("http://me"),
	}
	// Each engine gets its own budget of attempts
	require.Equal(t, []string{goodSrv.URL}, a.Announce(context.Background()))
	require.Equal(t, 98, broken.failures)
	require.Len(t, good.posts, 1)
}

func TestAnnounceCancelled(t *testing.T) {
	engine := &fakeEngine{failures: 100}
	srv := httptest.NewServer(engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	a := &Announcer{
		Engines:    []string{srv.URL},
		Retries:    1000,
		Delay:      time.Hour,
		Descriptor: NewDescriptor("http://me"),
	}
	start := time.Now()
	require.Empty(t, a.Announce(ctx))
	require.Less(t, time.Since(start), 5*time.Second)
}
