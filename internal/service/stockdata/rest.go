package stockdata

import (
	"context"
	"fmt"
	"time"

	"GapCast/internal/domain/models"
	xhttp "GapCast/pkg/http"
	"GapCast/pkg/util"
)

// RESTClient fetches historical daily bars from the provider's REST API,
// used to backfill symbols that have no tick history yet.
type RESTClient struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string
}

// NewRESTClient creates a history client against the provider REST endpoint.
func NewRESTClient(baseURL, apiKey string) *RESTClient {
	return &RESTClient{
		http:    xhttp.NewClient(xhttp.WithTimeout(20 * time.Second)),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type restBar struct {
	Time   int64   `json:"t"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type restHistoryResponse struct {
	Symbol string    `json:"symbol"`
	Bars   []restBar `json:"bars"`
}

// FetchDailyBars returns up to days of daily history for symbol, oldest
// first. Bars with non-positive closes are dropped.
func (c *RESTClient) FetchDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	var resp restHistoryResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/history",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		},
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {"D"},
			"days":       {fmt.Sprintf("%d", days)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("stockdata history %s: %w", symbol, err)
	}

	bars := make([]models.Bar, 0, len(resp.Bars))
	for _, rb := range resp.Bars {
		if rb.Close <= 0 {
			continue
		}
		ts := rb.Time
		if ts > 1e11 { // provider sometimes reports milliseconds
			ts /= 1000
		}
		bars = append(bars, models.Bar{
			Bucket: util.DayOf(time.Unix(ts, 0).In(util.ICT)),
			Symbol: symbol,
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		})
	}
	return bars, nil
}
