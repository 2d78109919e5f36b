package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zester4/RaidenAlpha/tool"
)

const duckDuckGoURL = "https://api.duckduckgo.com/"

const maxSearchResults = 5

// WebSearch queries the DuckDuckGo instant answer API.
func WebSearch() (tool.Definition, error) {
	return webSearchTool(duckDuckGoURL)
}

func webSearchTool(baseURL string) (tool.Definition, error) {
	client := &http.Client{Timeout: 15 * time.Second}

	return tool.New("web_search",
		func(ctx context.Context, args tool.Args) (string, error) {
			query := args.String("query")

			q := url.Values{}
			q.Set("q", query)
			q.Set("format", "json")
			q.Set("no_html", "1")

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
			if err != nil {
				return "", tool.Failf("web_search", "building request: %v", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", tool.Failf("web_search", "search service unreachable: %v", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if resp.StatusCode != http.StatusOK {
				return "", tool.Failf("web_search", "search service returned http %d", resp.StatusCode)
			}

			doc := gjson.ParseBytes(body)
			var sb strings.Builder
			if abstract := doc.Get("AbstractText").String(); abstract != "" {
				sb.WriteString(abstract)
				if src := doc.Get("AbstractURL").String(); src != "" {
					sb.WriteString(" (")
					sb.WriteString(src)
					sb.WriteString(")")
				}
				sb.WriteString("\n")
			}

			count := 0
			doc.Get("RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
				text := topic.Get("Text").String()
				if text == "" {
					return true
				}
				count++
				fmt.Fprintf(&sb, "%d. %s", count, text)
				if link := topic.Get("FirstURL").String(); link != "" {
					fmt.Fprintf(&sb, " (%s)", link)
				}
				sb.WriteString("\n")
				return count < maxSearchResults
			})

			if sb.Len() == 0 {
				return fmt.Sprintf("No results found for %q.", query), nil
			}
			return strings.TrimSpace(sb.String()), nil
		},
		tool.Description("Searches the web and returns a short summary with top results."),
		tool.Parameter("query", "string", "The search query", true),
	)
}
