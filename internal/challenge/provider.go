// Package challenge builds and grades timed knowledge proofs.
package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

// Content is the material a challenge is built from: an article plus a
// multiple-choice question with exactly one correct option.
type Content struct {
	Title        string
	Snippet      string
	Source       string
	URL          string
	Prompt       string
	Options      []string
	CorrectIndex int
}

// Provider supplies challenge content.
type Provider interface {
	Fetch(ctx context.Context) (*Content, error)
}

const (
	snippetLimit = 420
	optionCount  = 4
)

// fillerSources pads the distractor set when the feed yields too few
// distinct outlets.
var fillerSources = []string{"CoinDesk", "Decrypt", "The Block", "BlockWire"}

// NewsProvider fetches articles from a CryptoCompare-style news feed and
// turns them into source-attribution questions.
type NewsProvider struct {
	feedURL    string
	httpClient *http.Client
	logger     *slog.Logger
	rand       *rand.Rand
}

// NewNewsProvider creates a news-feed content provider.
func NewNewsProvider(feedURL string, logger *slog.Logger) *NewsProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsProvider{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type newsFeed struct {
	Data []newsArticle `json:"Data"`
}

type newsArticle struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	URL        string `json:"url"`
	GUID       string `json:"guid"`
	SourceInfo struct {
		Name string `json:"name"`
	} `json:"source_info"`
}

// Fetch pulls the feed and builds a question from one of the top articles.
func (p *NewsProvider) Fetch(ctx context.Context) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news feed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Debug("failed to close feed response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news feed returned status %d", resp.StatusCode)
	}

	var feed newsFeed
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode news feed: %w", err)
	}
	if len(feed.Data) == 0 {
		return nil, fmt.Errorf("news feed returned no articles")
	}

	// Rotate through the top ten articles.
	pool := feed.Data
	if len(pool) > 10 {
		pool = pool[:10]
	}
	article := pool[p.rand.Intn(len(pool))]

	return p.buildContent(article, pool), nil
}

func (p *NewsProvider) buildContent(article newsArticle, pool []newsArticle) *Content {
	correct := article.SourceInfo.Name
	if correct == "" {
		correct = "CryptoCompare"
	}

	// Distinct wrong outlets from the pool, padded with fillers.
	seen := map[string]bool{correct: true}
	var distractors []string
	for _, a := range pool {
		name := a.SourceInfo.Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		distractors = append(distractors, name)
		if len(distractors) == optionCount-1 {
			break
		}
	}
	for _, filler := range fillerSources {
		if len(distractors) == optionCount-1 {
			break
		}
		if !seen[filler] {
			seen[filler] = true
			distractors = append(distractors, filler)
		}
	}

	options := append([]string{correct}, distractors...)
	p.rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	correctIndex := 0
	for i, opt := range options {
		if opt == correct {
			correctIndex = i
			break
		}
	}

	snippet := article.Body
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
	}
	url := article.URL
	if url == "" {
		url = article.GUID
	}

	return &Content{
		Title:        article.Title,
		Snippet:      snippet,
		Source:       correct,
		URL:          url,
		Prompt:       "Based on this intelligence report, which outlet published this article?",
		Options:      options,
		CorrectIndex: correctIndex,
	}
}

// FallbackContent is the fixed built-in challenge used when the provider
// fails, so the protocol can always reach a Ready challenge.
func FallbackContent() *Content {
	return &Content{
		Title:        "Protocol Integrity Verification",
		Snippet:      "Welcome to WakeFi's proof-of-knowledge system. Answer the question to rescue your committed stake.",
		Source:       "WakeFi Protocol",
		Prompt:       "What does 'DeFi' stand for?",
		Options:      []string{"Decentralized Finance", "Digital Finance", "Distributed Funding", "Dynamic Fees"},
		CorrectIndex: 0,
	}
}
