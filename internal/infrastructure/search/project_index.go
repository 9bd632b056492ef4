package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
)

const (
	requestTimeout = 3 * time.Second
	bulkTimeout    = 30 * time.Second
	// maxHits is Elasticsearch's default index.max_result_window.
	maxHits = 10000
)

// ErrMappingConflict means an existing index maps name_lower as something
// other than keyword, so substring wildcards would only see single tokens.
var ErrMappingConflict = errors.New("project index mapping conflict")

// indexMapping stores name_lower unanalyzed; wildcards then match across spaces.
var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":         map[string]any{"type": "keyword"},
			"name":       map[string]any{"type": "text"},
			"name_lower": map[string]any{"type": "keyword"},
			"status":     map[string]any{"type": "keyword"},
			"archived":   map[string]any{"type": "boolean"},
			"tags":       map[string]any{"type": "keyword"},
			"updated_at": map[string]any{"type": "date"},
		},
	},
}

// ProjectIndex stores each project's lowercased name as a keyword so
// wildcard queries match case-insensitive substrings. EnsureIndex must run
// before the first write or the field would be mapped dynamically as text.
type ProjectIndex struct {
	ES    *elasticsearch.Client
	IndexName string
}

func NewProjectIndex(es *elasticsearch.Client, index string) *ProjectIndex {
	return &ProjectIndex{ES: es, IndexName: index}
}

type projectDoc struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	NameLower string   `json:"name_lower"`
	Status    string   `json:"status"`
	Archived  bool     `json:"archived"`
	Tags      []string `json:"tags"`
	UpdatedAt string   `json:"updated_at"`
}

func docFor(p *entity.Project) projectDoc {
	return projectDoc{
		ID:        p.ID,
		Name:      p.Name,
		NameLower: strings.ToLower(p.Name),
		Status:    string(p.Status),
		Archived:  p.Archived,
		Tags:      p.Tags,
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// EnsureIndex creates the index with indexMapping when missing, and checks
// that an existing one maps name_lower as keyword.
func (x *ProjectIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.IndicesExistsRequest{Index: []string{x.IndexName}}.Do(c, x.ES)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	switch {
	case res.StatusCode == 404:
		return x.create(c)
	case res.IsError():
		return fmt.Errorf("es index exists: %s", res.Status())
	}
	return x.checkMapping(c)
}

func (x *ProjectIndex) create(ctx context.Context) error {
	b, err := json.Marshal(indexMapping)
	if err != nil {
		return err
	}
	res, err := esapi.IndicesCreateRequest{Index: x.IndexName, Body: bytes.NewReader(b)}.Do(ctx, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es create index: %s", res.Status())
	}
	return nil
}

func (x *ProjectIndex) checkMapping(ctx context.Context) error {
	res, err := esapi.IndicesGetMappingRequest{Index: []string{x.IndexName}}.Do(ctx, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es get mapping: %s", res.Status())
	}
	var parsed map[string]struct {
		Mappings struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return err
	}
	for _, idx := range parsed {
		if typ := idx.Mappings.Properties["name_lower"].Type; typ != "" && typ != "keyword" {
			return fmt.Errorf("%w: %s.name_lower is %q", ErrMappingConflict, x.IndexName, typ)
		}
	}
	return nil
}

func (x *ProjectIndex) Index(ctx context.Context, p *entity.Project) error {
	b, err := json.Marshal(docFor(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.IndexName, DocumentID: p.ID, Body: bytes.NewReader(b), Refresh: "false"}
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

func (x *ProjectIndex) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.IndexName, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

// IndexAll writes ps in one bulk request; used to backfill projects that
// existed before the index did.
func (x *ProjectIndex) IndexAll(ctx context.Context, ps []*entity.Project) error {
	if len(ps) == 0 {
		return nil
	}
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, p := range ps {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_id": p.ID}}); err != nil {
			return err
		}
		if err := enc.Encode(docFor(p)); err != nil {
			return err
		}
	}
	c, cancel := context.WithTimeout(ctx, bulkTimeout)
	defer cancel()
	res, err := esapi.BulkRequest{Index: x.IndexName, Body: &body}.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es bulk: %s", res.Status())
	}
	var parsed struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return err
	}
	if parsed.Errors {
		return errors.New("es bulk: some documents were rejected")
	}
	return nil
}

// Search runs a substring wildcard over name_lower and returns project ids.
func (x *ProjectIndex) Search(ctx context.Context, q string) ([]string, error) {
	b, err := json.Marshal(searchBody(q))
	if err != nil {
		return nil, err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.IndexName),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
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
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func searchBody(q string) map[string]any {
	pattern := "*" + wildcardEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "*"
	return map[string]any{
		"query": map[string]any{
			"wildcard": map[string]any{
				"name_lower": map[string]any{"value": pattern},
			},
		},
		"size": maxHits,
	}
}
