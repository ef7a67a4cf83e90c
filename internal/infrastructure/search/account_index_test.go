package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/healthcare-identity/internal/application"
	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

type fakeES struct {
	mu      sync.Mutex
	paths   []string
	bodies  []map[string]any
	created bool
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(b, &body)
	f.mu.Lock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/accounts" && r.Method == http.MethodHead:
		f.mu.Lock()
		created := f.created
		f.mu.Unlock()
		if !created {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.URL.Path == "/accounts" && r.Method == http.MethodPut:
		f.mu.Lock()
		f.created = true
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_id":"a1","_source":{"id":"a1","name":"Dr. Grey","role":"doctor"}}]}}`)
	case strings.Contains(r.URL.Path, "/_doc/"):
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newIndex(t *testing.T) (*AccountIndex, *fakeES) {
	t.Helper()
	fake := &fakeES{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	es, err := helpers.NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)
	return NewAccountIndex(es, "accounts"), fake
}

func TestAccountIndexIndex(t *testing.T) {
	x, fake := newIndex(t)
	require.Equal(t, "accounts", x.Name)
	err := x.Index(context.Background(), application.AccountSummary{
		ID:          "a1",
		Email:       "doc@x.com",
		Role:        entity.RoleDoctor,
		DisplayName: "Dr. Grey",
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Equal(t, "PUT /accounts/_doc/a1", fake.paths[len(fake.paths)-1])
	doc := fake.bodies[len(fake.bodies)-1]
	require.Equal(t, "doctor", doc["role"])
	require.Equal(t, "Dr. Grey", doc["name"])
	require.NotContains(t, doc, "password_hash")
}

func TestAccountIndexSearch(t *testing.T) {
	x, fake := newIndex(t)
	hits, err := x.Search(context.Background(), "grey", 500)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "Dr. Grey", hits[0]["name"])

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Equal(t, "POST /accounts/_search", fake.paths[len(fake.paths)-1])
	body := fake.bodies[len(fake.bodies)-1]
	require.EqualValues(t, 10, body["size"], "oversized pages fall back to the default")
}

func TestAccountIndexEnsureIndexCreatesOnce(t *testing.T) {
	x, fake := newIndex(t)
	require.NoError(t, x.EnsureIndex(context.Background()))
	require.NoError(t, x.EnsureIndex(context.Background()))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Equal(t, []string{"HEAD /accounts", "PUT /accounts", "HEAD /accounts"}, fake.paths)
	mappings := fake.bodies[1]["mappings"].(map[string]any)
	props := mappings["properties"].(map[string]any)
	require.Equal(t, "keyword", props["role"].(map[string]any)["type"])
}
