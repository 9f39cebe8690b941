package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"pestwatch/internal/types"
)

// ProviderOpenMeteo is the config/registry identifier for Open-Meteo.
const ProviderOpenMeteo = "openmeteo"

// OpenMeteoProvider fetches current conditions from the Open-Meteo forecast
// endpoint. Open-Meteo requires no credentials, which makes it the cheapest
// secondary to keep enabled. Wind speed arrives in km/h and is converted.
type OpenMeteoProvider struct {
	client  *Client
	baseURL string
}

// NewOpenMeteoProvider creates the Open-Meteo provider.
func NewOpenMeteoProvider(client *Client, baseURL string) *OpenMeteoProvider {
	return &OpenMeteoProvider{client: client, baseURL: baseURL}
}

// Name implements Provider.
func (p *OpenMeteoProvider) Name() string { return ProviderOpenMeteo }

type openMeteoResponse struct {
	Current *struct {
		Temperature   *float64 `json:"temperature_2m"`
		Humidity      *float64 `json:"relative_humidity_2m"`
		Precipitation *float64 `json:"precipitation"`
		WindSpeed     *float64 `json:"wind_speed_10m"` // km/h
		Pressure      *float64 `json:"surface_pressure"`
	} `json:"current"`
}

// Fetch implements Provider.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, lat, lon float64) (*types.WeatherSample, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.6f", lat))
	q.Set("longitude", fmt.Sprintf("%.6f", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,surface_pressure")

	body, err := p.client.GetJSON(ctx, p.baseURL+"/forecast?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			"openmeteo: invalid JSON payload", err)
	}

	if resp.Current == nil {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			"openmeteo: response missing current block", nil)
	}
	if name := firstMissing(map[string]*float64{
		"temperature_2m":       resp.Current.Temperature,
		"relative_humidity_2m": resp.Current.Humidity,
		"precipitation":        resp.Current.Precipitation,
		"wind_speed_10m":       resp.Current.WindSpeed,
		"surface_pressure":     resp.Current.Pressure,
	}, []string{"temperature_2m", "relative_humidity_2m", "precipitation", "wind_speed_10m", "surface_pressure"}); name != "" {
		return nil, types.NewAppError(types.ErrCodeProviderMalformed,
			fmt.Sprintf("openmeteo: response missing %s field", name), nil)
	}

	return &types.WeatherSample{
		TemperatureC: *resp.Current.Temperature,
		HumidityPct:  *resp.Current.Humidity,
		RainfallMm:   *resp.Current.Precipitation,
		WindSpeedMps: *resp.Current.WindSpeed / 3.6,
		PressureHPa:  *resp.Current.Pressure,
		Location:     types.Location{Lat: lat, Lon: lon},
		ProviderName: ProviderOpenMeteo,
	}, nil
}
