package classifier

import (
	"context"
	"fmt"
	"time"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/domain/service"
	xhttp "PQAnalyzer/pkg/http"
)

// HTTPClassifier calls an external model service. Requests are never retried.
type HTTPClassifier struct {
	baseURL    string
	phenomenon models.Phenomenon
	client     *xhttp.Client
}

type predictRequest struct {
	Phenomenon models.Phenomenon `json:"phenomenon"`
	Features   [][2]float64      `json:"features"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

func NewHTTPClassifier(baseURL string, p models.Phenomenon, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClassifier{
		baseURL:    baseURL,
		phenomenon: p,
		client:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (c *HTTPClassifier) Predict(ctx context.Context, rows [][2]float64) ([]bool, error) {
	var resp predictResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/predict",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    predictRequest{Phenomenon: c.phenomenon, Features: rows},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s model service: %v", service.ErrModelUnavailable, c.phenomenon, err)
	}
	if len(resp.Predictions) != len(rows) {
		return nil, fmt.Errorf("%w: model service returned %d for %d rows", service.ErrPredictionLength, len(resp.Predictions), len(rows))
	}
	out := make([]bool, len(rows))
	for i, p := range resp.Predictions {
		switch p {
		case 0:
		case 1:
			out[i] = true
		default:
			return nil, fmt.Errorf("%w: model service returned %v at row %d", service.ErrPredictionValue, p, i)
		}
	}
	return out, nil
}

var _ service.Classifier = (*HTTPClassifier)(nil)
