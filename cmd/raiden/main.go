package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/k0kubun/pp/v3"
	"github.com/nats-io/nats.go"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	raiden "github.com/zester4/RaidenAlpha"
	"github.com/zester4/RaidenAlpha/internal/broker"
	"github.com/zester4/RaidenAlpha/memory"
	"github.com/zester4/RaidenAlpha/messages"
	"github.com/zester4/RaidenAlpha/provider/openai"
	"github.com/zester4/RaidenAlpha/tool"
	"github.com/zester4/RaidenAlpha/tools"
	"github.com/zester4/RaidenAlpha/vector"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()

	level := slog.LevelInfo
	if os.Getenv("RAIDEN_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

type config struct {
	Model     string
	RedisURL  string
	MaxTokens int
	NATSURL   string
	Workspace string
	Vector    bool
	Tools     []string
}

func main() {
	ctx := context.Background()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY is required")
	}

	modelName := os.Getenv("RAIDEN_MODEL")
	if modelName == "" {
		modelName = oai.ChatModelGPT4oMini
	}
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	model := openai.Model(modelName, clientOpts...)

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	store, err := memory.NewRedisStore(redisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		slog.Warn("redis unreachable, conversation history will not persist", slog.String("error", err.Error()))
	}

	index := vectorIndex(ctx)

	workspace := os.Getenv("RAIDEN_WORKSPACE")
	if workspace == "" {
		workspace, _ = os.Getwd()
	}

	registry := tool.NewRegistry()
	registry.Register(
		tools.DateTime,
		tools.WebSearch,
		tools.CodeExecution,
		tools.FileSystem(workspace),
		tools.Weather(os.Getenv("OPENWEATHERMAP_API_KEY")),
		tools.Scraper(os.Getenv("FIRECRAWL_API_KEY")),
		tools.SemanticSearch(index),
	)

	maxTokens := 4000
	if raw := os.Getenv("RAIDEN_MAX_TOKENS"); raw != "" {
		if n, perr := strconv.Atoi(raw); perr == nil && n > 0 {
			maxTokens = n
		}
	}

	convOpts := []memory.Option{memory.WithMaxTokens(maxTokens)}
	if index != nil {
		convOpts = append(convOpts, memory.WithVectorIndex(index))
	}
	conversation, err := memory.New(ctx, store, messages.System(systemPrompt(registry)), convOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open conversation")
	}

	agentOpts := []raiden.Option{
		raiden.WithModel(model),
		raiden.WithConversation(conversation),
		raiden.WithRegistry(registry),
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		nc, nerr := nats.Connect(natsURL)
		if nerr != nil {
			log.Fatal().Err(nerr).Msg("failed to connect to NATS")
		}
		defer nc.Close()
		agentOpts = append(agentOpts, raiden.WithBroker(broker.NATS(nc)))
	}

	agent, err := raiden.New(agentOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build agent")
	}

	if os.Getenv("RAIDEN_DEBUG") != "" {
		var names []string
		for _, def := range registry.Definitions() {
			names = append(names, def.Name)
		}
		_, _ = pp.Fprintln(os.Stderr, config{
			Model:     modelName,
			RedisURL:  redisURL,
			MaxTokens: maxTokens,
			NATSURL:   os.Getenv("NATS_URL"),
			Workspace: workspace,
			Vector:    index != nil,
			Tools:     names,
		})
	}

	repl(ctx, agent)
}

func vectorIndex(ctx context.Context) vector.Index {
	url := os.Getenv("UPSTASH_VECTOR_REST_URL")
	token := os.Getenv("UPSTASH_VECTOR_REST_TOKEN")
	if url == "" || token == "" {
		return nil
	}
	idx := vector.NewUpstash(url, token)

	probe, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if !idx.IsReady(probe) {
		slog.Warn("vector index unreachable, semantic memory disabled")
		return nil
	}
	return idx
}

func systemPrompt(registry *tool.Registry) string {
	var sb strings.Builder
	sb.WriteString("You are Raiden, a helpful, capable assistant. Answer concisely and accurately.")
	if registry.Len() > 0 {
		sb.WriteString("\n\nYou have access to the following tools:\n")
		for _, def := range registry.Definitions() {
			fmt.Fprintf(&sb, "- %s: %s\n", def.Name, def.Description)
		}
		sb.WriteString("\nUse a tool whenever it gives a better answer than recall alone. After receiving tool results, answer the user's question directly.")
	}
	return sb.String()
}

func repl(ctx context.Context, agent *raiden.Agent) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Split(bufio.ScanLines)
	hook := newConsoleHook(os.Stdout)

	for {
		fmt.Printf("%s: ", color.CyanString("User"))
		if !scanner.Scan() {
			fmt.Println("Exiting...")
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Println("Goodbye.")
			return
		}

		msg, err := parseInput(input)
		if err != nil {
			fmt.Println(color.RedString("%v", err))
			continue
		}

		fmt.Println(color.HiBlackString("Thinking..."))
		if _, err := agent.RunTurn(ctx, msg, hook); err != nil {
			slog.Error("turn failed", slog.String("error", err.Error()))
		}
		hook.waitTurn()
		fmt.Println()
	}
}

// parseInput turns a REPL line into a user message. Lines of the form
// "file:<path> <prompt>" attach the file as an inline image part.
func parseInput(input string) (messages.Message, error) {
	if !strings.HasPrefix(input, "file:") {
		return messages.User(input), nil
	}

	rest := strings.TrimPrefix(input, "file:")
	path, prompt := rest, ""
	if idx := strings.IndexAny(rest, " \t"); idx >= 0 {
		path, prompt = rest[:idx], strings.TrimSpace(rest[idx+1:])
	}
	if prompt == "" {
		prompt = "Describe this file."
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return messages.Message{}, fmt.Errorf("cannot read %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return messages.Message{}, fmt.Errorf("unsupported attachment type %q, only images are supported", mimeType)
	}

	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return messages.UserParts(
		messages.File(dataURI, mimeType),
		messages.Text(prompt),
	), nil
}
