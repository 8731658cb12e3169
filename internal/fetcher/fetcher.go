// Package fetcher retrieves published receipts and extracts the text blocks
// the pipeline consumes: the issuing company line and the raw item lines.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/feirante/feirante/internal/common"
	"github.com/feirante/feirante/internal/service"
)

// maxBodySize caps how much of a receipt page is read.
const maxBodySize = 2 << 20

var issuedAtRe = regexp.MustCompile(`Emiss[ãa]o:\s*(\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2}:\d{2})`)

// HTTPFetcher implements service.InvoiceFetcher over plain HTTP.
type HTTPFetcher struct {
	httpClient *http.Client
	retryOpts  service.RetryOptions
}

// New creates a receipt fetcher.
func New() *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
		},
	}
}

// FetchAndExtract downloads a receipt page and extracts its company line,
// raw item text, and issue timestamp. Transport problems surface as
// ErrInvoiceNotReachable (retried with backoff); pages missing the expected
// structure surface as ErrInvoiceParseFailure.
func (f *HTTPFetcher) FetchAndExtract(ctx context.Context, url string) (*service.FetchedInvoice, error) {
	var body string
	err := common.WithRetry(ctx, func() error {
		fetched, err := f.fetch(ctx, url)
		if err != nil {
			return err
		}
		body = fetched
		return nil
	}, f.retryOpts)
	if err != nil {
		return nil, err
	}

	return ExtractReceipt(body)
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvoiceNotReachable, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrInvoiceNotReachable, err),
			Retryable: true,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500
		return "", &common.RetryableError{
			Err:       fmt.Errorf("%w: status %d", common.ErrInvoiceNotReachable, resp.StatusCode),
			Retryable: retryable,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvoiceNotReachable, err)
	}

	return string(body), nil
}

// ExtractReceipt splits a receipt body into the company line (first
// non-empty line), the item block, and the issue timestamp when present.
func ExtractReceipt(body string) (*service.FetchedInvoice, error) {
	lines := strings.Split(body, "\n")

	company := ""
	itemsStart := 0
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			company = strings.TrimSpace(line)
			itemsStart = i + 1
			break
		}
	}

	if company == "" {
		return nil, fmt.Errorf("%w: empty receipt body", common.ErrInvoiceParseFailure)
	}

	itemsText := strings.TrimSpace(strings.Join(lines[itemsStart:], "\n"))
	if itemsText == "" {
		return nil, fmt.Errorf("%w: no item lines found", common.ErrInvoiceParseFailure)
	}

	invoice := &service.FetchedInvoice{
		CompanyName:  company,
		ItemsRawText: itemsText,
	}

	if m := issuedAtRe.FindStringSubmatch(body); m != nil {
		if issuedAt, err := time.Parse("02/01/2006 15:04:05", m[1]); err == nil {
			invoice.IssuedAt = issuedAt
		}
	}

	return invoice, nil
}

var _ service.InvoiceFetcher = (*HTTPFetcher)(nil)
