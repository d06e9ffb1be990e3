package cnpj

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const cnpjaDefaultURL = "https://api.cnpja.com/rfb/certificate"

// CertificateClient downloads the formal CNPJ certificate PDF from the
// credentialed CNPJa endpoint.
type CertificateClient struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HasCredential reports whether an API key is configured.
func (c *CertificateClient) HasCredential() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != ""
}

// Download fetches the certificate PDF for an already-normalized CNPJ.
// 401 and 404 are surfaced as ErrUnauthorized and ErrNotFound since they
// are caller-actionable; every other failure comes back as *ProviderError
// so the engine can fall back to a placeholder document.
func (c *CertificateClient) Download(ctx context.Context, cnpj14 string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = cnpjaDefaultURL
	}

	endpoint := baseURL + "?" + url.Values{"taxId": {cnpj14}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Provider: "CNPJa", Err: err}
	}
	req.Header.Set("Authorization", strings.TrimSpace(c.APIKey))
	req.Header.Set("Accept", "application/pdf")

	client := c.Client
	if client == nil {
		client = newHTTPClient(c.Timeout)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "CNPJa", Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch resp.StatusCode {
	case http.StatusOK:
		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &ProviderError{Provider: "CNPJa", Err: fmt.Errorf("read certificate body: %w", err)}
		}
		return content, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &ProviderError{
			Provider:   "CNPJa",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected certificate response"),
		}
	}
}

// placeholderPDF builds a minimal but structurally valid PDF embedding the
// formatted CNPJ, returned when no credentialed certificate provider can
// serve the request. Downstream tooling recognizes it as a real PDF; the
// body text marks it as synthetic.
func placeholderPDF(cnpjFormatted string) []byte {
	stream := fmt.Sprintf(`BT
/F1 12 Tf
50 750 Td
(CARTAO CNPJ - DOCUMENTO SINTETICO) Tj
0 -20 Td
(CNPJ: %s) Tj
0 -20 Td
(Gerado sem acesso ao provedor de certificados) Tj
ET`, cnpjFormatted)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, 5)

	writeObj := func(body string) {
		offsets = append(offsets, b.Len())
		b.WriteString(body)
	}

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	writeObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n")
	writeObj("4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	writeObj(fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))

	xrefStart := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for _, off := range offsets {
		b.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	b.WriteString(fmt.Sprintf("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", xrefStart))

	return []byte(b.String())
}
