package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zester4/RaidenAlpha/tool"
	"github.com/zester4/RaidenAlpha/vector"
)

const defaultSemanticTopK = 5

// SemanticSearch returns a constructor for the semantic memory search tool
// over the conversation's vector index. The constructor fails when no index
// is configured so the tool is absent rather than broken.
func SemanticSearch(index vector.Index) func() (tool.Definition, error) {
	return func() (tool.Definition, error) {
		if index == nil {
			return tool.Definition{}, errors.New("semantic_memory_search requires a vector index")
		}

		return tool.New("semantic_memory_search",
			func(ctx context.Context, args tool.Args) (string, error) {
				query := args.String("query")
				topK := int(args.IntOr("top_k", defaultSemanticTopK))

				matches, err := index.Query(ctx, query, topK)
				if err != nil {
					return "", tool.Failf("semantic_memory_search", "index query failed: %v", err)
				}
				if len(matches) == 0 {
					return "No related conversation memories found.", nil
				}

				var sb strings.Builder
				for i, m := range matches {
					fmt.Fprintf(&sb, "%d. [%.2f] %s\n", i+1, m.Score, m.Data)
				}
				return strings.TrimSpace(sb.String()), nil
			},
			tool.Description("Searches past conversation memories semantically and returns the closest matches."),
			tool.Parameter("query", "string", "What to look for in past conversation", true),
			tool.Parameter("top_k", "integer", "Maximum number of matches to return (default 5)", false),
		)
	}
}
