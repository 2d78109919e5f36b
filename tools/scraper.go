package tools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/zester4/RaidenAlpha/tool"
)

const firecrawlURL = "https://api.firecrawl.dev/v1/scrape"

// scraped pages are truncated before re-entering model context
const maxScrapeLen = 8000

// Scraper returns a constructor for the page-scraping tool backed by
// Firecrawl. The constructor fails when no API key is configured.
func Scraper(apiKey string) func() (tool.Definition, error) {
	return func() (tool.Definition, error) {
		return scraperTool(apiKey, firecrawlURL)
	}
}

func scraperTool(apiKey, endpoint string) (tool.Definition, error) {
	if apiKey == "" {
		return tool.Definition{}, errors.New("scrape_website requires a Firecrawl API key")
	}
	client := &http.Client{Timeout: 60 * time.Second}

	return tool.New("scrape_website",
		func(ctx context.Context, args tool.Args) (string, error) {
			target := args.String("url")

			payload, err := json.Marshal(map[string]any{
				"url":     target,
				"formats": []string{"markdown"},
			})
			if err != nil {
				return "", tool.Failf("scrape_website", "building request: %v", err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return "", tool.Failf("scrape_website", "building request: %v", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+apiKey)

			resp, err := client.Do(req)
			if err != nil {
				return "", tool.Failf("scrape_website", "scrape service unreachable: %v", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			if resp.StatusCode != http.StatusOK {
				return "", tool.Failf("scrape_website", "scrape service returned http %d", resp.StatusCode)
			}

			doc := gjson.ParseBytes(body)
			if !doc.Get("success").Bool() {
				return "", tool.Failf("scrape_website", "scrape failed: %s", doc.Get("error").String())
			}
			content := doc.Get("data.markdown").String()
			if content == "" {
				return "", tool.Failf("scrape_website", "no content extracted from %s", target)
			}
			if len(content) > maxScrapeLen {
				content = content[:maxScrapeLen] + "\n...[truncated]"
			}
			return content, nil
		},
		tool.Description("Fetches a web page and returns its content as markdown."),
		tool.Parameter("url", "string", "The URL of the page to scrape", true),
	)
}
