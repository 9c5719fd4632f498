package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/nvoronchev/platform-auth/internal/events"
)

// Indexer writes auth events into an elasticsearch index so operators can
// search the audit trail. It is an optional sink; the service runs without it.
type Indexer struct {
	client *elasticsearch.Client
	index  string
}

func NewIndexer(url, user, password, index string) (*Indexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return &Indexer{client: client, index: index}, nil
}

var _ events.Sink = (*Indexer)(nil)

func (ix *Indexer) Publish(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	res, err := ix.client.Index(ix.index, bytes.NewReader(data),
		ix.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("audit: index event: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit: index event: %s", res.Status())
	}
	return nil
}
