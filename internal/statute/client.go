package statute

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultBaseURL is the national law information API root.
	DefaultBaseURL = "https://www.law.go.kr/DRF"

	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxArticles caps how many articles one fetch keeps. Large
	// codes run to thousands of articles; the cap keeps fetch and
	// indexing cost bounded.
	DefaultMaxArticles = 50
)

// ClientConfig configures the law API client.
type ClientConfig struct {
	BaseURL     string
	OC          string // API credential (등록 이메일 ID)
	Timeout     time.Duration
	MaxArticles int
	Logger      *slog.Logger
}

// Client talks to the law information API. Safe for concurrent use.
type Client struct {
	baseURL     string
	oc          string
	maxArticles int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a law API client, filling unset config with defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.OC == "" {
		return nil, fmt.Errorf("law API credential (OC) is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxArticles := cfg.MaxArticles
	if maxArticles <= 0 {
		maxArticles = DefaultMaxArticles
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		oc:          cfg.OC,
		maxArticles: maxArticles,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

// LawInfo is the search result for one law.
type LawInfo struct {
	ID   string
	Name string
	Link string
}

// SearchLaw resolves a law name to its API identifier. Returns the best
// match (the API orders by relevance).
func (c *Client) SearchLaw(ctx context.Context, name string) (*LawInfo, error) {
	params := url.Values{}
	params.Set("OC", c.oc)
	params.Set("target", "law")
	params.Set("type", "JSON")
	params.Set("query", name)

	body, err := c.get(ctx, "/lawSearch.do", params)
	if err != nil {
		return nil, fmt.Errorf("law search for %q: %w", name, err)
	}

	var envelope struct {
		LawSearch struct {
			Law json.RawMessage `json:"law"`
		} `json:"LawSearch"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode law search response: %w", err)
	}
	laws := asArray(envelope.LawSearch.Law)
	if len(laws) == 0 {
		return nil, fmt.Errorf("no law found for %q", name)
	}

	var entry struct {
		ID   json.RawMessage `json:"법령ID"`
		Name string          `json:"법령명한글"`
		Link string          `json:"법령상세링크"`
	}
	if err := json.Unmarshal(laws[0], &entry); err != nil {
		return nil, fmt.Errorf("failed to decode law entry: %w", err)
	}
	id := asString(entry.ID)
	if id == "" {
		return nil, fmt.Errorf("law entry for %q has no ID", name)
	}
	return &LawInfo{ID: id, Name: entry.Name, Link: entry.Link}, nil
}

// FetchArticles fetches the articles of the named law, capped at the
// configured maximum. The returned articles carry the resolved law name.
func (c *Client) FetchArticles(ctx context.Context, lawName string) ([]Article, error) {
	info, err := c.SearchLaw(ctx, lawName)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("OC", c.oc)
	params.Set("target", "law")
	params.Set("type", "JSON")
	params.Set("ID", info.ID)

	body, err := c.get(ctx, "/lawService.do", params)
	if err != nil {
		return nil, fmt.Errorf("law detail for %q: %w", lawName, err)
	}

	articles, err := parseArticles(body, info)
	if err != nil {
		return nil, fmt.Errorf("failed to parse articles of %q: %w", lawName, err)
	}
	if len(articles) > c.maxArticles {
		articles = articles[:c.maxArticles]
	}
	c.logger.Debug("fetched statute articles",
		"law", info.Name,
		"law_id", info.ID,
		"articles", len(articles))
	return articles, nil
}

// get performs one GET with retries on transport errors and 5xx.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()
	return retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 {
				return nil, fmt.Errorf("law API returned %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, retry.Unrecoverable(fmt.Errorf("law API returned %d", resp.StatusCode))
			}
			return body, nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

// parseArticles walks the 법령/조문/조문단위 structure. The API renders
// single-element collections as objects rather than arrays, so every
// collection goes through asArray.
func parseArticles(body []byte, info *LawInfo) ([]Article, error) {
	var envelope struct {
		Law struct {
			Articles struct {
				Units json.RawMessage `json:"조문단위"`
			} `json:"조문"`
		} `json:"법령"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	var articles []Article
	for _, raw := range asArray(envelope.Law.Articles.Units) {
		var unit struct {
			Number  json.RawMessage `json:"조문번호"`
			IsBody  string          `json:"조문여부"`
			Title   string          `json:"조문제목"`
			Content json.RawMessage `json:"조문내용"`
			Clauses json.RawMessage `json:"항"`
		}
		if err := json.Unmarshal(raw, &unit); err != nil {
			continue
		}
		// Chapter headings and the preamble also appear as units.
		if unit.IsBody != "" && unit.IsBody != "조문" {
			continue
		}

		var text strings.Builder
		text.WriteString(strings.TrimSpace(joinStrings(unit.Content)))
		for _, clauseRaw := range asArray(unit.Clauses) {
			var clause struct {
				Content json.RawMessage `json:"항내용"`
				Items   json.RawMessage `json:"호"`
			}
			if err := json.Unmarshal(clauseRaw, &clause); err != nil {
				continue
			}
			appendLine(&text, joinStrings(clause.Content))
			for _, itemRaw := range asArray(clause.Items) {
				var item struct {
					Content json.RawMessage `json:"호내용"`
				}
				if err := json.Unmarshal(itemRaw, &item); err != nil {
					continue
				}
				appendLine(&text, joinStrings(item.Content))
			}
		}

		num := asString(unit.Number)
		if num == "" || text.Len() == 0 {
			continue
		}
		articles = append(articles, Article{
			Code:      info.Name,
			LawID:     info.ID,
			Number:    "제" + num + "조",
			Title:     strings.TrimSpace(unit.Title),
			Text:      text.String(),
			SourceURL: info.Link,
		})
	}
	return articles, nil
}

func appendLine(b *strings.Builder, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(s)
}

// asArray decodes a JSON value that may be an array, a single object, or
// absent into a slice of raw elements.
func asArray(raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil
		}
		return arr
	}
	return []json.RawMessage{raw}
}

// asString decodes a JSON value that may be a string or a number.
func asString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// joinStrings decodes a value that may be a string or an array of strings
// into one newline-joined string.
func joinStrings(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return strings.Join(arr, "\n")
	}
	return asString(raw)
}
