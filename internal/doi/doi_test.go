// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package doi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1/abc", "10.1/abc"},
		{"https://doi.org/10.1/abc", "10.1/abc"},
		{"10.1/abc.", "10.1/abc"},
		{"  doi:10.1/abc;  ", "10.1/abc"},
		{"DOI: 10.1/abc", "10.1/abc"},
		{"http://dx.doi.org/10.1145/1234.5678,", "10.1145/1234.5678"},
		{"HTTPS://DOI.ORG/10.1/X.,;", "10.1/X"},
		{"https://doi.org/doi:10.1/abc", "10.1/abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("10.1145/a:b"); got != "10.1145-a-b" {
		t.Errorf("Slug = %q", got)
	}
}

// handleServer answers handle API requests from a fixed table keyed by the
// identifier path and counts hits per identifier.
type handleServer struct {
	mu     sync.Mutex
	hits   map[string]int
	status map[string]int
	body   map[string]string
}

func (h *handleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/handles/")
	h.mu.Lock()
	h.hits[id]++
	status, ok := h.status[id]
	body := h.body[id]
	h.mu.Unlock()
	if !ok {
		status = http.StatusNotFound
		body = `{"responseCode":100}`
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newHandleServer(t *testing.T) (*handleServer, *Validator) {
	t.Helper()
	hs := &handleServer{
		hits:   map[string]int{},
		status: map[string]int{},
		body:   map[string]string{},
	}
	srv := httptest.NewServer(hs)
	t.Cleanup(srv.Close)
	v := &Validator{Client: srv.Client(), BaseURL: srv.URL + "/api/handles/", UserAgent: "course-engine-test"}
	return hs, v
}

func TestValidate_DedupesVariants(t *testing.T) {
	hs, v := newHandleServer(t)
	hs.status["10.1/abc"] = http.StatusOK
	hs.body["10.1/abc"] = `{"responseCode":1,"handle":"10.1/abc"}`

	ids := []string{"10.1/abc", "https://doi.org/10.1/abc", "10.1/abc."}
	got := v.Validate(context.Background(), ids)

	if n := hs.hits["10.1/abc"]; n != 1 {
		t.Errorf("resolution checks = %d, want 1", n)
	}
	for _, id := range ids {
		if !got[id] {
			t.Errorf("Validate[%q] = false, want true", id)
		}
	}
}

func TestValidate_Outcomes(t *testing.T) {
	hs, v := newHandleServer(t)
	hs.status["10.1/ok"] = http.StatusOK
	hs.body["10.1/ok"] = `{"responseCode":1}`
	hs.status["10.1/wrongcode"] = http.StatusOK
	hs.body["10.1/wrongcode"] = `{"responseCode":200}`
	hs.status["10.1/garbled"] = http.StatusOK
	hs.body["10.1/garbled"] = `<html>`
	hs.status["10.1/down"] = http.StatusBadGateway
	hs.status["10.1/throttled"] = http.StatusTooManyRequests

	ids := []string{"10.1/ok", "10.1/missing", "10.1/wrongcode", "10.1/garbled", "10.1/down", "10.1/throttled", "  "}
	got := v.Validate(context.Background(), ids)

	want := map[string]bool{
		"10.1/ok":        true,
		"10.1/missing":   false,
		"10.1/wrongcode": false,
		"10.1/garbled":   false,
		"10.1/down":      true,
		"10.1/throttled": true,
		"  ":             false,
	}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("Validate[%q] = %v, want %v", id, got[id], w)
		}
	}
	if len(got) != len(ids) {
		t.Errorf("len(result) = %d, want %d", len(got), len(ids))
	}
	if _, requested := hs.hits[""]; requested {
		t.Error("empty identifier should not be requested")
	}

	stale := Stale(got)
	sort.Strings(stale)
	wantStale := []string{"  ", "10.1/garbled", "10.1/missing", "10.1/wrongcode"}
	if strings.Join(stale, "|") != strings.Join(wantStale, "|") {
		t.Errorf("Stale = %q, want %q", stale, wantStale)
	}
}

func TestValidate_NetworkFailureIsValid(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	v := &Validator{Client: &http.Client{}, BaseURL: base}
	got := v.Validate(context.Background(), []string{"10.1/unreachable"})
	if !got["10.1/unreachable"] {
		t.Error("network failure should keep the identifier")
	}
}

func TestValidate_EscapesSegments(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"responseCode":1}`))
	}))
	defer srv.Close()

	v := &Validator{Client: srv.Client(), BaseURL: srv.URL}
	got := v.Validate(context.Background(), []string{"10.1002/(SICI)1097 x"})
	if !got["10.1002/(SICI)1097 x"] {
		t.Error("expected valid")
	}
	if gotPath != "/10.1002/%28SICI%291097%20x" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestValidate_Empty(t *testing.T) {
	v := &Validator{}
	if got := v.Validate(context.Background(), nil); len(got) != 0 {
		t.Errorf("Validate(nil) = %v", got)
	}
}
