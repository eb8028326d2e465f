package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
)

const requestTimeout = 3 * time.Second

// TourIndex mirrors the searchable tour fields into one Elasticsearch index.
type TourIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewTourIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *TourIndex {
	return &TourIndex{es: es, index: index, logger: logger}
}

var tourMapping = []byte(`{
  "mappings": {
    "properties": {
      "name":        {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "slug":        {"type": "keyword"},
      "summary":     {"type": "text"},
      "description": {"type": "text"},
      "difficulty":  {"type": "keyword"},
      "price":       {"type": "double"},
      "secret":      {"type": "boolean"},
      "created_at":  {"type": "date"}
    }
  }
}`)

// EnsureIndex creates the tours index with its mapping on first start.
func (i *TourIndex) EnsureIndex(ctx context.Context) error {
	return helpers.EnsureIndex(ctx, i.es, i.index, tourMapping)
}

type tourDoc struct {
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Difficulty  string    `json:"difficulty"`
	Price       float64   `json:"price"`
	Secret      bool      `json:"secret"`
	CreatedAt   time.Time `json:"created_at"`
}

func (i *TourIndex) IndexTour(ctx context.Context, t *entity.Tour) error {
	b, err := json.Marshal(tourDoc{
		Name:        t.Name,
		Slug:        t.Slug,
		Summary:     t.Summary,
		Description: t.Description,
		Difficulty:  t.Difficulty,
		Price:       t.Price,
		Secret:      t.SecretTour,
		CreatedAt:   t.CreatedAt,
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: i.index, DocumentID: t.ID.Hex(), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s: %s", t.ID.Hex(), res.Status())
	}
	return nil
}

func (i *TourIndex) RemoveTour(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: i.index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	// already gone is fine
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete %s: %s", id, res.Status())
	}
	return nil
}

// SearchTours returns matching tour ids, best match first. Secret tours are
// filtered here as well as by the read hooks.
func (i *TourIndex) SearchTours(ctx context.Context, q string, size int) ([]string, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"name^3", "summary^2", "description", "difficulty"},
					},
				},
				"must_not": map[string]any{"term": map[string]any{"secret": true}},
			},
		},
		"_source": false,
		"size":    size,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := i.es.Search(i.es.Search.WithContext(c), i.es.Search.WithIndex(i.index), i.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		if i.logger != nil {
			i.logger.WithField("status", res.Status()).Warn("es search response error")
		}
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

	out := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.ID)
	}
	return out, nil
}

var _ application.SearchIndex = (*TourIndex)(nil)
