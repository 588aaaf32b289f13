package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticSink bulk-indexes each sheet into <prefix>_<sheet>. Documents use the
// sheet's first column as their id so re-exports overwrite instead of
// duplicating.
type ElasticSink struct {
	client *elasticsearch.Client
	prefix string
}

func NewElasticSink(host, prefix string) (*ElasticSink, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{host}})
	if err != nil {
		return nil, err
	}
	return &ElasticSink{client: client, prefix: prefix}, nil
}

func (s *ElasticSink) Name() string { return "elasticsearch" }

func (s *ElasticSink) Index(sheet string) string {
	return strings.ToLower(s.prefix + "_" + sheet)
}

func (s *ElasticSink) Write(ctx context.Context, sheets []Sheet) error {
	for _, sh := range sheets {
		if len(sh.Rows) == 0 {
			continue
		}
		if err := s.bulk(ctx, sh); err != nil {
			return fmt.Errorf("index %s: %w", s.Index(sh.Name), err)
		}
	}
	return nil
}

func (s *ElasticSink) bulk(ctx context.Context, sh Sheet) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, doc := range sh.Docs() {
		id := ""
		if len(sh.Rows[i]) > 0 {
			id = sh.Rows[i][0]
		}
		meta := map[string]map[string]string{"index": {"_index": s.Index(sh.Name)}}
		// Delivery lines share a delivery id; let the cluster assign those.
		if id != "" && sh.Name != "deliveries" {
			meta["index"]["_id"] = id
		}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	res, err := s.client.Bulk(bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithRefresh("false"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return err
	}
	if out.Errors {
		for _, item := range out.Items {
			for _, r := range item {
				if r.Status >= 300 {
					return fmt.Errorf("bulk item failed: %s", r.Error.Reason)
				}
			}
		}
	}
	return nil
}
