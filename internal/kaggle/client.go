package kaggle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andresuchdata/dataset-relay/internal/config"
	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the download-all endpoint of the Kaggle competitions API.
const DefaultBaseURL = "https://www.kaggle.com/api/v1/competitions/data/download-all"

// Client downloads competition archives from the Kaggle API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	key        string
}

// NewClient builds a Client from the Kaggle section of the configuration.
// A nil httpClient gets a fresh client using cfg.Timeout (zero means none).
func NewClient(cfg config.KaggleConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		username:   cfg.Username,
		key:        cfg.Key,
	}
}

// Download fetches the full archive for competition into memory.
func (c *Client) Download(ctx context.Context, competition string) (*domain.DatasetPayload, error) {
	competition = strings.TrimSpace(competition)
	if competition == "" {
		return nil, domain.ErrMissingCompetition
	}

	log := zerolog.Ctx(ctx).With().Str("competition", competition).Logger()
	log.Info().Msgf("Downloading %s from Kaggle...", competition)

	endpoint := c.baseURL + "/" + url.PathEscape(competition)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build kaggle request: %w", err)
	}
	req.SetBasicAuth(c.username, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kaggle request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read kaggle response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.RemoteFetchError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	log.Info().Int("bytes", len(body)).Msg("Downloaded successfully")

	return &domain.DatasetPayload{
		Filename: domain.ArchiveName(competition),
		Data:     body,
	}, nil
}
