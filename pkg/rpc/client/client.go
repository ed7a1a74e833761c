package client

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

	"github.com/rollkit/bridge/pkg/p2p"
	"github.com/rollkit/bridge/pkg/rpc/server"
	"github.com/rollkit/bridge/types"
)

// Client talks to the node HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new Client for the API served at baseURL, e.g. "http://127.0.0.1:7331".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Error is a non-2xx response from the API.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// SubmitTxns submits transactions and returns their hashes in order.
func (c *Client) SubmitTxns(ctx context.Context, txns ...server.TxnRequest) ([]types.Hash, error) {
	body, err := json.Marshal(server.SubmitRequest{Txns: txns})
	if err != nil {
		return nil, err
	}
	var resp server.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/txns", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return resp.Hashes, nil
}

// Watermarks returns the pipeline heights.
func (c *Client) Watermarks(ctx context.Context) (server.Watermarks, error) {
	var wm server.Watermarks
	err := c.do(ctx, http.MethodGet, "/watermarks", nil, &wm)
	return wm, err
}

// Account returns the sequencing view of addr.
func (c *Client) Account(ctx context.Context, addr types.Address) (server.AccountInfo, error) {
	var info server.AccountInfo
	err := c.do(ctx, http.MethodGet, "/accounts/"+addr.String(), nil, &info)
	return info, err
}

// BlockByID returns the block with the given id.
func (c *Client) BlockByID(ctx context.Context, id types.Hash) (*server.BlockInfo, error) {
	var info server.BlockInfo
	if err := c.do(ctx, http.MethodGet, "/blocks/"+id.String(), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// BlockByNumber returns the committed block at number.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*server.BlockInfo, error) {
	var info server.BlockInfo
	if err := c.do(ctx, http.MethodGet, "/blocks/number/"+strconv.FormatUint(number, 10), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// NetInfo returns the p2p identity of the node.
func (c *Client) NetInfo(ctx context.Context) (p2p.NetworkInfo, error) {
	var info p2p.NetworkInfo
	err := c.do(ctx, http.MethodGet, "/net_info", nil, &info)
	return info, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &Error{Code: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
