package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/radieske/coinflip-pool/internal/flip-service/dto"
)

// Client fala com a API REST do flip-service
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// HTTPError carrega o status e a mensagem de erro devolvida pelo serviço
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("flip-service http %d: %s", e.Status, e.Message)
}

func (c *Client) Authority(ctx context.Context, poolID string, nonce uint8) (string, error) {
	var out dto.AuthorityResponse
	path := "/v1/pools/" + url.PathEscape(poolID) + "/authority?nonce=" + strconv.Itoa(int(nonce))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Authority, nil
}

func (c *Client) InitializePool(ctx context.Context, poolID string, req dto.InitializePoolRequest) (*dto.PoolResponse, error) {
	var out dto.PoolResponse
	if err := c.do(ctx, http.MethodPost, "/v1/pools/"+url.PathEscape(poolID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Flip(ctx context.Context, poolID string, req dto.FlipRequest) (*dto.FlipResponse, error) {
	var out dto.FlipResponse
	if err := c.do(ctx, http.MethodPost, "/v1/pools/"+url.PathEscape(poolID)+"/flip", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OpenAccount(ctx context.Context, owner, assetID string) (*dto.AccountResponse, error) {
	var out dto.AccountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/accounts", dto.OpenAccountRequest{Owner: owner, AssetID: assetID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Deposit(ctx context.Context, accountID string, amount uint64) (*dto.AccountResponse, error) {
	var out dto.AccountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/accounts/"+url.PathEscape(accountID)+"/deposit", dto.DepositRequest{Amount: amount}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Account(ctx context.Context, accountID string) (*dto.AccountResponse, error) {
	var out dto.AccountResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+url.PathEscape(accountID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e dto.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		return &HTTPError{Status: res.StatusCode, Message: e.Error}
	}
	return json.NewDecoder(res.Body).Decode(out)
}
