package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// QRISClient implements Gateway against an OkeConnect-style merchant API:
// the QR payload is derived locally from the merchant's static QRIS string
// and payments are read from the account mutation feed.
type QRISClient struct {
	httpClient *http.Client
	baseURL    string
	merchantID string
	apiKey     string
	qrString   string
}

func NewQRISClient(baseURL, merchantID, apiKey, qrString string) *QRISClient {
	return &QRISClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		merchantID: merchantID,
		apiKey:     apiKey,
		qrString:   qrString,
	}
}

func (c *QRISClient) GenerateQR(_ context.Context, amount int64) ([]byte, error) {
	payload, err := dynamicQRIS(c.qrString, amount)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

type mutationResponse struct {
	Status string `json:"status"`
	Data   []struct {
		Reference string `json:"issuer_reff"`
		Amount    string `json:"amount"`
		Type      string `json:"type"`
		Date      string `json:"date"`
	} `json:"data"`
}

func (c *QRISClient) CheckPayment(ctx context.Context, code string, amount int64) (Status, error) {
	url := fmt.Sprintf("%s/api/mutasi/qris/%s/%s", c.baseURL, c.merchantID, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Status{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var mr mutationResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return Status{}, fmt.Errorf("%w: bad response: %v", ErrGatewayUnavailable, err)
	}
	if !strings.EqualFold(mr.Status, "success") {
		return Status{}, fmt.Errorf("%w: provider status %q", ErrGatewayUnavailable, mr.Status)
	}

	for _, m := range mr.Data {
		if !strings.EqualFold(m.Type, "CR") {
			continue
		}
		got, err := strconv.ParseInt(strings.TrimSpace(m.Amount), 10, 64)
		if err != nil {
			continue
		}
		if got == amount {
			return Status{Paid: true, Reference: m.Reference, Amount: got}, nil
		}
	}
	return Status{Paid: false}, nil
}
