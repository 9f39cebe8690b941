package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"pestwatch/internal/types"
)

// ProviderWeatherAPI is the config/registry identifier for WeatherAPI.com.
const ProviderWeatherAPI = "weatherapi"

// WeatherAPIProvider fetches current conditions from the WeatherAPI.com
// realtime endpoint. Wind speed arrives in km/h and is converted to m/s.
type WeatherAPIProvider struct {
	client  *Client
	baseURL string
	apiKey  types.SecretString
}

// NewWeatherAPIProvider creates the WeatherAPI.com provider.
func NewWeatherAPIProvider(client *Client, baseURL string, apiKey types.SecretString) *WeatherAPIProvider {
	return &WeatherAPIProvider{client: client, baseURL: baseURL, apiKey: apiKey}
}

// Name implements Provider.
func (p *WeatherAPIProvider) Name() string { return ProviderWeatherAPI }

type weatherAPIResponse struct {
	Current *struct {
		TempC      *float64 `json:"temp_c"`
		Humidity   *float64 `json:"humidity"`
		PressureMb *float64 `json:"pressure_mb"` // millibars == hPa
		WindKph    *float64 `json:"wind_kph"`
		PrecipMm   *float64 `json:"precip_mm"`
	} `json:"current"`
	Location *struct {
		Country string `json:"country"`
		Region  string `json:"region"`
	} `json:"location"`
}

// Fetch implements Provider.
func (p *WeatherAPIProvider) Fetch(ctx context.Context, lat, lon float64) (*types.WeatherSample, error) {
	q := url.Values{}
	q.Set("key", p.apiKey.Unmask())
	q.Set("q", fmt.Sprintf("%.6f,%.6f", lat, lon))

	body, err := p.client.GetJSON(ctx, p.baseURL+"/current.json?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp weatherAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			"weatherapi: invalid JSON payload", err)
	}

	if resp.Current == nil {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			"weatherapi: response missing current block", nil)
	}
	if name := firstMissing(map[string]*float64{
		"temp_c":      resp.Current.TempC,
		"humidity":    resp.Current.Humidity,
		"pressure_mb": resp.Current.PressureMb,
		"wind_kph":    resp.Current.WindKph,
		"precip_mm":   resp.Current.PrecipMm,
	}, []string{"temp_c", "humidity", "pressure_mb", "wind_kph", "precip_mm"}); name != "" {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			fmt.Sprintf("weatherapi: response missing %s field", name), nil)
	}

	loc := types.Location{Lat: lat, Lon: lon}
	if resp.Location != nil {
		loc.Country = resp.Location.Country
		loc.Region = resp.Location.Region
	}

	return &types.WeatherSample{
		TemperatureC: *resp.Current.TempC,
		HumidityPct:  *resp.Current.Humidity,
		RainfallMm:   *resp.Current.PrecipMm,
		WindSpeedMps: *resp.Current.WindKph / 3.6,
		PressureHPa:  *resp.Current.PressureMb,
		Location:     loc,
		ProviderName: ProviderWeatherAPI,
	}, nil
}
