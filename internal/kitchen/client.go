package kitchen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/models"
)

// APIError is a non-2xx answer of the REST API.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Code)
}

// Client talks to the REST API of a running server. It implements OrderSource.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	token string
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login exchanges credentials for a bearer token used by later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/users/login", body, &out); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = out.Token
	return nil
}

// Orders fetches every page of orders for day and meal.
func (c *Client) Orders(ctx context.Context, day time.Time, meal models.MealType) ([]models.Order, error) {
	q := Query(day, meal)
	var all []models.Order
	for {
		var page httpx.ListResponse[models.Order]
		if err := c.do(ctx, http.MethodGet, "/api/orders?"+q.Values().Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("fetch orders: %w", err)
		}
		all = append(all, page.Docs...)
		if !page.HasNextPage {
			return all, nil
		}
		q.Page.Page = page.Page + 1
	}
}

// ToggleStatus flips an order whose status the caller currently sees as displayed.
func (c *Client) ToggleStatus(ctx context.Context, id uint, displayed models.OrderStatus) (*models.Order, error) {
	var o models.Order
	path := "/api/orders/" + strconv.FormatUint(uint64(id), 10) + "/toggle"
	if err := c.do(ctx, http.MethodPost, path, map[string]models.OrderStatus{"status": displayed}, &o); err != nil {
		return nil, fmt.Errorf("toggle order %d: %w", id, err)
	}
	return &o, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e httpx.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
