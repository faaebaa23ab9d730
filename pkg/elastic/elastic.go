package elastic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/samogod/trainconf/pkg/config"
	"github.com/samogod/trainconf/pkg/runconfig"
)

type Client struct {
	es    *es8.Client
	index string
}

// runDocument is the indexed shape: the run summary plus inspection
// metadata, so runs can be searched across experiments.
type runDocument struct {
	runconfig.Summary
	Valid       bool      `json:"valid"`
	Findings    int       `json:"findings"`
	InspectedAt time.Time `json:"inspected_at"`
}

func New(cfg config.Elasticsearch) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("elasticsearch URL is required")
	}
	index := cfg.Index
	if strings.TrimSpace(index) == "" {
		index = "trainconf_runs"
	}

	es, err := es8.NewClient(es8.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// Lightweight ping
	if _, err := es.Info(); err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	return &Client{es: es, index: index}, nil
}

// IndexRun stores one inspected run summary, keyed by name and config hash
// so re-inspections overwrite rather than duplicate.
func (c *Client) IndexRun(ctx context.Context, summary runconfig.Summary, valid bool, findings int) error {
	doc := runDocument{
		Summary:     summary,
		Valid:       valid,
		Findings:    findings,
		InspectedAt: time.Now().UTC(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal run document: %w", err)
	}

	docID := fmt.Sprintf("%s-%s", summary.Name, summary.ConfigHash)
	res, err := c.es.Index(c.index, bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(docID),
	)
	if err != nil {
		return fmt.Errorf("failed to index run: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch returned %s", res.Status())
	}

	return nil
}

// IndexJSONLinesFile bulk-indexes an export file of run documents, one JSON
// object per line.
func (c *Client) IndexJSONLinesFile(ctx context.Context, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open jsonl file: %w", err)
	}
	defer f.Close()

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     c.es,
		Index:      c.index,
		NumWorkers: 4,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var failed int64

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 8*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		item := esutil.BulkIndexerItem{
			Action: "index",
			Body:   strings.NewReader(line),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, resp esutil.BulkIndexerResponseItem, err error) {
				atomic.AddInt64(&failed, 1)
			},
		}
		if err := bi.Add(ctx, item); err != nil {
			return fmt.Errorf("bulk add failed: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("bulk indexer close failed: %w", err)
	}

	if n := atomic.LoadInt64(&failed); n > 0 {
		return fmt.Errorf("%d documents failed to index", n)
	}
	return nil
}
