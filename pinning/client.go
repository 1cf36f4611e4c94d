// Package pinning uploads media to a Pinata compatible pinning service.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"
)

const DefaultEndpoint = "https://api.pinata.cloud/pinning/pinFileToIPFS"

type Client struct {
	cli      *http.Client
	endpoint string
	jwt      string
}

func NewClient(endpoint string, jwt string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Client{
		cli: &http.Client{
			Timeout: 60 * time.Second,
		},
		endpoint: endpoint,
		jwt:      jwt,
	}
}

type PinResponse struct {
	IpfsHash    string `json:"IpfsHash"`
	PinSize     int64  `json:"PinSize"`
	Timestamp   string `json:"Timestamp"`
	IsDuplicate bool   `json:"isDuplicate"`
}

func (c *Client) newRequest(ctx context.Context, name string, r io.Reader) (*http.Request, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, err
	}
	if err := w.WriteField("pinataOptions", `{"cidVersion":1}`); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, &body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return req, nil
}

// Pin uploads the payload read from r and returns its content identifier.
func (c *Client) Pin(ctx context.Context, name string, r io.Reader) (string, error) {
	req, err := c.newRequest(ctx, name, r)
	if err != nil {
		return "", err
	}

	resp, err := c.cli.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("received non-200 response code: %d", resp.StatusCode)
	}

	var pinResp PinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinResp); err != nil {
		return "", err
	}

	parsed, err := cid.Decode(pinResp.IpfsHash)
	if err != nil {
		return "", fmt.Errorf("pinning service returned an invalid cid %q: %w", pinResp.IpfsHash, err)
	}

	return parsed.String(), nil
}

// URI formats a content identifier the way posts reference media.
func URI(id string) string {
	return "ipfs://" + id
}
