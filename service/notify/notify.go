// Package notify sends push notifications through the OneSignal REST API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"warehouse.GO/core/apperr"
)

// Message is one push. Empty UserIDs means every subscriber.
type Message struct {
	Title     string
	Body      string
	UserIDs   []uint
	Subtitle  string
	ImageURL  string
	LaunchURL string
	Data      map[string]interface{}
	SendAfter *time.Time
}

type Notifier interface {
	Send(ctx context.Context, m Message) error
}

// Nop is used when push is not configured.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }

type OneSignal struct {
	AppID  string
	APIKey string
	URL    string
	Client *http.Client
	log    *zap.Logger
}

// New returns a OneSignal client, or Nop when credentials are missing.
func New(appID, apiKey, url string, log *zap.Logger) Notifier {
	if appID == "" || apiKey == "" {
		return Nop{}
	}
	if url == "" {
		url = "https://onesignal.com/api/v1/notifications"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OneSignal{AppID: appID, APIKey: apiKey, URL: url, Client: &http.Client{Timeout: 15 * time.Second}, log: log}
}

type localized map[string]string

type payload struct {
	AppID                 string                 `json:"app_id"`
	Headings              localized              `json:"headings"`
	Contents              localized              `json:"contents"`
	Subtitle              localized              `json:"subtitle,omitempty"`
	IncludeExternalUserID []string               `json:"include_external_user_ids,omitempty"`
	IncludedSegments      []string               `json:"included_segments,omitempty"`
	BigPicture            string                 `json:"big_picture,omitempty"`
	URL                   string                 `json:"url,omitempty"`
	Data                  map[string]interface{} `json:"data,omitempty"`
	SendAfter             string                 `json:"send_after,omitempty"`
}

func (o *OneSignal) build(m Message) payload {
	p := payload{
		AppID:    o.AppID,
		Headings: localized{"en": m.Title},
		Contents: localized{"en": m.Body},
		URL:      m.LaunchURL,
		Data:     m.Data,
	}
	if m.Subtitle != "" {
		p.Subtitle = localized{"en": m.Subtitle}
	}
	if m.ImageURL != "" {
		p.BigPicture = m.ImageURL
	}
	if len(m.UserIDs) > 0 {
		for _, id := range m.UserIDs {
			p.IncludeExternalUserID = append(p.IncludeExternalUserID, strconv.FormatUint(uint64(id), 10))
		}
	} else {
		p.IncludedSegments = []string{"All"}
	}
	if m.SendAfter != nil {
		p.SendAfter = m.SendAfter.UTC().Format(time.RFC1123)
	}
	return p
}

func (o *OneSignal) Send(ctx context.Context, m Message) error {
	if strings.TrimSpace(m.Title) == "" || strings.TrimSpace(m.Body) == "" {
		return apperr.Validationf("title", "title and message are required")
	}
	body, err := json.Marshal(o.build(m))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	resp, err := o.Client.Do(req)
	if err != nil {
		return apperr.Upstreamf(err, "push notification failed")
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		var out struct {
			Errors []string `json:"errors"`
		}
		_ = json.Unmarshal(raw, &out)
		msg := resp.Status
		if len(out.Errors) > 0 {
			msg = strings.Join(out.Errors, ", ")
		}
		return apperr.Upstreamf(fmt.Errorf("status %d", resp.StatusCode), "push notification failed: %s", msg)
	}
	o.log.Debug("push sent", zap.String("title", m.Title), zap.Int("recipients", len(m.UserIDs)))
	return nil
}

// Async sends m on its own goroutine. Errors are logged and dropped.
func Async(n Notifier, m Message, log *zap.Logger) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := n.Send(ctx, m); err != nil && log != nil {
			log.Warn("push notification failed", zap.String("title", m.Title), zap.Error(err))
		}
	}()
}
