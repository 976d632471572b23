package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Config struct {
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
}

// Enabled reports whether an Elasticsearch cluster is configured
func (c Config) Enabled() bool {
	return c.URL != ""
}

type entry struct {
	ActionType string    `json:"action_type"`
	TableName  string    `json:"table_name"`
	RecordID   int64     `json:"record_id"`
	OldValues  string    `json:"old_values,omitempty"`
	NewValues  string    `json:"new_values,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ElasticsearchSink persists audit entries into an Elasticsearch index
type ElasticsearchSink struct {
	client *elasticsearch.Client
	config Config
}

func NewElasticsearchSink(cfg Config) (*ElasticsearchSink, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	sink := &ElasticsearchSink{client: es, config: cfg}

	if err := sink.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure audit index exists: %w", err)
	}

	return sink, nil
}

func (s *ElasticsearchSink) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{s.config.Index},
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Audit index already exists", "index", s.config.Index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"action_type": map[string]interface{}{"type": "keyword"},
				"table_name":  map[string]interface{}{"type": "keyword"},
				"record_id":   map[string]interface{}{"type": "long"},
				"old_values":  map[string]interface{}{"type": "text"},
				"new_values":  map[string]interface{}{"type": "text"},
				"timestamp":   map[string]interface{}{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: s.config.Index,
		Body:  bytes.NewReader(body),
	}

	createRes, err := createReq.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("index creation returned status %d", createRes.StatusCode)
	}

	slog.Info("Created audit index", "index", s.config.Index)
	return nil
}

// RecordAction indexes one audit entry. Indexing failures are logged,
// never propagated.
func (s *ElasticsearchSink) RecordAction(ctx context.Context, actionType, tableName string, recordID int64, oldValues, newValues string) {
	doc := entry{
		ActionType: actionType,
		TableName:  tableName,
		RecordID:   recordID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Timestamp:  time.Now(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		slog.Error("Failed to marshal audit entry", "action", actionType, "error", err)
		return
	}

	req := esapi.IndexRequest{
		Index: s.config.Index,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		slog.Error("Failed to index audit entry",
			"action", actionType, "table", tableName, "record_id", recordID, "error", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		slog.Error("Audit entry rejected by Elasticsearch",
			"action", actionType, "table", tableName, "record_id", recordID, "status", res.StatusCode)
	}
}
