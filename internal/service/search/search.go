package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/ndatsenko/pulsemon/internal/models"
)

// Index mirrors one metric into Elasticsearch. Callers treat this as
// best-effort: the DB row is the source of truth.
func Index(ctx context.Context, esClient *elasticsearch.Client, index string, metric models.Metric) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(metric); err != nil {
		return fmt.Errorf("index error: %w", err)
	}

	res, err := esClient.Index(
		index,
		&buf,
		esClient.Index.WithContext(ctx),
		esClient.Index.WithDocumentID(fmt.Sprint(metric.ID)),
	)
	if err != nil {
		return fmt.Errorf("index error: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.Status())
	}
	return nil
}

// Search runs a fuzzy match over metric names, units and system ids.
func Search(ctx context.Context, esClient *elasticsearch.Client, index, query string, from, size int) (int64, []models.Metric, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "system_id", "unit"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search error: %w", err)
	}

	res, err := esClient.Search(
		esClient.Search.WithContext(ctx),
		esClient.Search.WithIndex(index),
		esClient.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search error: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search error: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Metric `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	metrics := make([]models.Metric, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		metrics[i] = hit.Source
	}
	return r.Hits.Total.Value, metrics, nil
}
