package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nahio/models"
	"nahio/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	ErrInvalidCEP = errors.New("cep must have 8 digits")
	ErrNotFound   = errors.New("cep not found")
)

const cacheTTL = 24 * time.Hour

// viaCEPResponse mirrors https://viacep.com.br/ws/{cep}/json/.
type viaCEPResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        any    `json:"erro,omitempty"`
}

// Client looks up Brazilian postal codes through ViaCEP, caching hits.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Cache   utils.KV
	Logger  *zap.Logger
}

func NewClient(baseURL string, cache utils.KV, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Cache:  cache,
		Logger: logger,
	}
}

// NormalizeCEP strips punctuation and checks the 8-digit length.
func NormalizeCEP(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != 8 {
		return "", ErrInvalidCEP
	}
	return b.String(), nil
}

// Lookup resolves a CEP to a partial address: street, district, city and state.
func (c *Client) Lookup(ctx context.Context, raw string) (*models.Address, error) {
	cep, err := NormalizeCEP(raw)
	if err != nil {
		return nil, err
	}
	key := "cep:" + cep

	if c.Cache != nil {
		if cached, err := c.Cache.Get(ctx, key); err == nil {
			var addr models.Address
			if json.Unmarshal([]byte(cached), &addr) == nil {
				return &addr, nil
			}
		} else if !errors.Is(err, utils.ErrCacheMiss) {
			c.Logger.Warn("cep cache read failed", zap.String("cep", cep), zap.Error(err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.BaseURL, cep), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("viacep request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, ErrInvalidCEP
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("viacep returned status %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode viacep response: %w", err)
	}
	// ViaCEP answers unknown codes with 200 and {"erro": true} (or "true").
	if body.Erro != nil && fmt.Sprint(body.Erro) != "false" {
		return nil, ErrNotFound
	}

	addr := &models.Address{
		CEP:        cep,
		Street:     body.Logradouro,
		Complement: body.Complemento,
		District:   body.Bairro,
		City:       body.Localidade,
		State:      body.UF,
	}
	if c.Cache != nil {
		if b, err := json.Marshal(addr); err == nil {
			if err := c.Cache.Set(ctx, key, string(b), cacheTTL); err != nil {
				c.Logger.Warn("cep cache write failed", zap.String("cep", cep), zap.Error(err))
			}
		}
	}
	return addr, nil
}
