package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"pestwatch/internal/types"
)

// ProviderOpenWeather is the config/registry identifier for OpenWeatherMap.
const ProviderOpenWeather = "openweathermap"

// OpenWeatherProvider fetches current conditions from the OpenWeatherMap
// current-weather endpoint (units=metric).
type OpenWeatherProvider struct {
	client  *Client
	baseURL string
	apiKey  types.SecretString
}

// NewOpenWeatherProvider creates the OpenWeatherMap provider.
func NewOpenWeatherProvider(client *Client, baseURL string, apiKey types.SecretString) *OpenWeatherProvider {
	return &OpenWeatherProvider{client: client, baseURL: baseURL, apiKey: apiKey}
}

// Name implements Provider.
func (p *OpenWeatherProvider) Name() string { return ProviderOpenWeather }

// openWeatherResponse mirrors the subset of the OpenWeatherMap payload the
// engine needs. Pointer fields distinguish "absent" from zero.
type openWeatherResponse struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"` // m/s with units=metric
	} `json:"wind"`
	Rain *struct {
		OneHour   *float64 `json:"1h"`
		ThreeHour *float64 `json:"3h"`
	} `json:"rain"`
	Sys *struct {
		Country string `json:"country"`
	} `json:"sys"`
	Name string `json:"name"`
}

// Fetch implements Provider.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, lat, lon float64) (*types.WeatherSample, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lon", fmt.Sprintf("%.6f", lon))
	q.Set("units", "metric")
	q.Set("appid", p.apiKey.Unmask())

	body, err := p.client.GetJSON(ctx, p.baseURL+"/weather?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp openWeatherResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			"openweathermap: invalid JSON payload", err)
	}

	if resp.Main == nil || resp.Wind == nil {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			"openweathermap: response missing main or wind block", nil)
	}
	if name := firstMissing(map[string]*float64{
		"temp":     resp.Main.Temp,
		"humidity": resp.Main.Humidity,
		"pressure": resp.Main.Pressure,
		"wind":     resp.Wind.Speed,
	}, []string{"temp", "humidity", "pressure", "wind"}); name != "" {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			fmt.Sprintf("openweathermap: response missing %s field", name), nil)
	}

	// An absent rain block legitimately means no recent rainfall.
	var rainfall float64
	if resp.Rain != nil {
		switch {
		case resp.Rain.OneHour != nil:
			rainfall = *resp.Rain.OneHour
		case resp.Rain.ThreeHour != nil:
			rainfall = *resp.Rain.ThreeHour
		}
	}

	loc := types.Location{Lat: lat, Lon: lon, Region: resp.Name}
	if resp.Sys != nil {
		loc.Country = resp.Sys.Country
	}

	return &types.WeatherSample{
		TemperatureC: *resp.Main.Temp,
		HumidityPct:  *resp.Main.Humidity,
		RainfallMm:   rainfall,
		WindSpeedMps: *resp.Wind.Speed,
		PressureHPa:  *resp.Main.Pressure,
		Location:     loc,
		ProviderName: ProviderOpenWeather,
	}, nil
}
