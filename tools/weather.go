package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zester4/RaidenAlpha/tool"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// Weather returns a constructor for the current-conditions tool backed by
// OpenWeatherMap. The constructor fails when no API key is configured.
func Weather(apiKey string) func() (tool.Definition, error) {
	return func() (tool.Definition, error) {
		return weatherTool(apiKey, openWeatherURL)
	}
}

func weatherTool(apiKey, baseURL string) (tool.Definition, error) {
	if apiKey == "" {
		return tool.Definition{}, errors.New("get_weather requires an OpenWeatherMap API key")
	}
	client := &http.Client{Timeout: 15 * time.Second}

	return tool.New("get_weather",
		func(ctx context.Context, args tool.Args) (string, error) {
			location := args.String("location")
			units := args.StringOr("units", "metric")

			q := url.Values{}
			q.Set("q", location)
			q.Set("units", units)
			q.Set("appid", apiKey)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
			if err != nil {
				return "", tool.Failf("get_weather", "building request: %v", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", tool.Failf("get_weather", "weather service unreachable: %v", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if resp.StatusCode == http.StatusNotFound {
				return "", tool.Failf("get_weather", "location %q not found", location)
			}
			if resp.StatusCode != http.StatusOK {
				return "", tool.Failf("get_weather", "weather service returned http %d", resp.StatusCode)
			}

			doc := gjson.ParseBytes(body)
			unit := "°C"
			if units == "imperial" {
				unit = "°F"
			}
			return fmt.Sprintf("Weather in %s: %s, %.1f%s (feels like %.1f%s), humidity %d%%, wind %.1f m/s",
				doc.Get("name").String(),
				doc.Get("weather.0.description").String(),
				doc.Get("main.temp").Float(), unit,
				doc.Get("main.feels_like").Float(), unit,
				doc.Get("main.humidity").Int(),
				doc.Get("wind.speed").Float(),
			), nil
		},
		tool.Description("Gets current weather conditions for a location."),
		tool.Parameter("location", "string", "City name, optionally with country code, e.g. 'Paris' or 'Paris,FR'", true),
		tool.EnumParameter("units", "Unit system for temperatures and wind speed", []string{"metric", "imperial"}, false),
	)
}
