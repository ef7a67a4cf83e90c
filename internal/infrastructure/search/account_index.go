// Package search keeps the account directory in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/healthcare-identity/internal/application"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

const requestTimeout = 3 * time.Second

// MaxResults caps a single search page
const MaxResults = 50

// AccountIndex stores public account summaries; hashes and codes never reach it.
type AccountIndex struct {
	ES   *elasticsearch.Client
	Name string
}

func NewAccountIndex(es *elasticsearch.Client, index string) *AccountIndex {
	return &AccountIndex{ES: es, Name: index}
}

// Mapping keeps role as a keyword so directory filters match exactly.
const Mapping = `{
  "mappings": {
    "properties": {
      "id":                  {"type": "keyword"},
      "email":               {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "role":                {"type": "keyword"},
      "name":                {"type": "text"},
      "is_account_verified": {"type": "boolean"},
      "avatar_url":          {"type": "keyword", "index": false},
      "created_at":          {"type": "date"}
    }
  }
}`

// EnsureIndex creates the directory index on first boot
func (x *AccountIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return helpers.ESEnsureIndex(c, x.ES, x.Name, Mapping)
}

func (x *AccountIndex) Index(ctx context.Context, s application.AccountSummary) error {
	doc := map[string]any{
		"id":                  s.ID,
		"email":               s.Email,
		"role":                string(s.Role),
		"name":                s.DisplayName,
		"is_account_verified": s.IsAccountVerified,
		"avatar_url":          s.AvatarURL,
		"created_at":          s.CreatedAt.Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Name, DocumentID: s.ID, Body: bytes.NewReader(b), Refresh: "false"}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match over email, name and role.
func (x *AccountIndex) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if size <= 0 || size > MaxResults {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name", "role"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Name), x.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

var _ application.AccountIndexer = (*AccountIndex)(nil)
