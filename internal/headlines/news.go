package headlines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	newsAPIEndpoint    = "https://newsapi.org/v2/everything"
	geminiEndpointFmt  = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	defaultGeminiModel = "gemini-pro"
)

// NewsSupply builds batches from live news: real headlines from
// NewsAPI, with the lie generated by the Gemini API. Any failure
// falls back to the static dataset so a round can always start.
type NewsSupply struct {
	newsAPIKey  string
	geminiKey   string
	geminiModel string
	client      *http.Client
	fallback    *StaticSupply
	log         zerolog.Logger
}

func NewNewsSupply(newsAPIKey, geminiKey string, fallback *StaticSupply, log zerolog.Logger) *NewsSupply {
	return &NewsSupply{
		newsAPIKey:  newsAPIKey,
		geminiKey:   geminiKey,
		geminiModel: defaultGeminiModel,
		client:      &http.Client{Timeout: 30 * time.Second},
		fallback:    fallback,
		log:         log,
	}
}

func (n *NewsSupply) NextBatch(ctx context.Context, exclude map[string]struct{}) (Batch, error) {
	if n.newsAPIKey == "" || n.geminiKey == "" {
		return n.fallback.NextBatch(ctx, exclude)
	}
	batch, err := n.liveBatch(ctx)
	if err != nil {
		n.log.Warn().Err(err).Msg("live headline fetch failed, using static batch")
		return n.fallback.NextBatch(ctx, exclude)
	}
	return batch, nil
}

func (n *NewsSupply) liveBatch(ctx context.Context) (Batch, error) {
	articles, err := n.fetchArticles(ctx)
	if err != nil {
		return Batch{}, err
	}
	selected, lie, err := n.generateLie(ctx, articles)
	if err != nil {
		return Batch{}, err
	}

	var batch Batch
	batch.ID = "news-" + uuid.NewString()
	for i := 0; i < 3; i++ {
		batch.Headlines[i] = selected[i]
	}
	batch.Headlines[3] = Headline{Title: lie, IsLie: true}
	return batch, nil
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title  string `json:"title"`
		URL    string `json:"url"`
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (n *NewsSupply) fetchArticles(ctx context.Context) ([]Headline, error) {
	from := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")
	params := url.Values{}
	params.Set("q", "*")
	params.Set("language", "en")
	params.Set("from", from)
	params.Set("sortBy", "popularity")
	params.Set("pageSize", "20")
	params.Set("apiKey", n.newsAPIKey)

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, newsAPIEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build news request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("news request failed (%d)", resp.StatusCode)
	}
	var parsed newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if parsed.Status != "ok" || len(parsed.Articles) < 5 {
		return nil, fmt.Errorf("insufficient articles returned (%d)", len(parsed.Articles))
	}

	headlines := make([]Headline, 0, len(parsed.Articles))
	for _, article := range parsed.Articles {
		if article.Title == "" || article.URL == "" {
			continue
		}
		if strings.Contains(article.Title, "[Removed]") || len(article.Title) <= 20 {
			continue
		}
		headlines = append(headlines, Headline{Title: article.Title, URL: article.URL})
		if len(headlines) == 15 {
			break
		}
	}
	if len(headlines) < 3 {
		return nil, errors.New("not enough usable headlines")
	}
	return headlines, nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type lieSelection struct {
	SelectedIndices []int  `json:"selectedIndices"`
	FakeHeadline    string `json:"fakeHeadline"`
}

func (n *NewsSupply) generateLie(ctx context.Context, articles []Headline) ([]Headline, string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "You are helping with a \"Three Truths and a Lie\" game about news headlines.\n\n")
	fmt.Fprintf(&prompt, "Here are %d real news headlines:\n", len(articles))
	for i, article := range articles {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, article.Title)
	}
	prompt.WriteString(`
Your tasks:
1. Select the 3 most interesting and diverse headlines from the list above
2. Generate 1 fake headline that sounds plausible but is clearly fake when you think about it

Return your response in this EXACT JSON format (no additional text):
{"selectedIndices": [1, 3, 5], "fakeHeadline": "Your generated fake headline here"}`)

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt.String()}}}},
	})
	if err != nil {
		return nil, "", fmt.Errorf("build gemini request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	endpoint := fmt.Sprintf(geminiEndpointFmt, n.geminiModel) + "?key=" + url.QueryEscape(n.geminiKey)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("reach gemini: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("gemini request failed (%d)", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, "", errors.New("empty gemini response")
	}
	selection, err := parseLieSelection(parsed.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, "", err
	}

	selected := make([]Headline, 0, 3)
	for _, index := range selection.SelectedIndices {
		if index < 1 || index > len(articles) {
			continue
		}
		selected = append(selected, articles[index-1])
		if len(selected) == 3 {
			break
		}
	}
	if len(selected) < 3 || strings.TrimSpace(selection.FakeHeadline) == "" {
		return nil, "", errors.New("gemini selection incomplete")
	}
	return selected, strings.TrimSpace(selection.FakeHeadline), nil
}

// parseLieSelection extracts the JSON object from a model reply that
// may wrap it in prose or code fences.
func parseLieSelection(text string) (lieSelection, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return lieSelection{}, errors.New("no JSON object in gemini reply")
	}
	var selection lieSelection
	if err := json.Unmarshal([]byte(text[start:end+1]), &selection); err != nil {
		return lieSelection{}, fmt.Errorf("parse gemini reply: %w", err)
	}
	return selection, nil
}
