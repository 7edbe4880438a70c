package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "http://nlsmeta.ap-southeast-1.aliyuncs.com/"
	defaultRegion   = "ap-southeast-1"
	defaultTimeout  = 10 * time.Second
)

// AliCloudTokenService exchanges long-lived access keys for a time-limited
// speech-service token via a signed GET request. Pure request construction
// plus one HTTP round trip; no state.
type AliCloudTokenService struct {
	accessKeyID     string
	accessKeySecret string
	endpoint        string
	httpClient      *http.Client
	logger          *zap.Logger

	// nonce and timestamp are overridable for deterministic signature
	// tests; left nil in production.
	nonce     func() string
	timestamp func() string
}

// NewAliCloudTokenService creates a token service for the given key pair.
func NewAliCloudTokenService(accessKeyID, accessKeySecret string, logger *zap.Logger) (*AliCloudTokenService, error) {
	if accessKeyID == "" || accessKeySecret == "" {
		return nil, fmt.Errorf("alicloud access key ID and secret are required")
	}
	return &AliCloudTokenService{
		accessKeyID:     accessKeyID,
		accessKeySecret: accessKeySecret,
		endpoint:        defaultEndpoint,
		httpClient:      &http.Client{Timeout: defaultTimeout},
		logger:          logger,
	}, nil
}

type tokenResponse struct {
	Token struct {
		ID         string `json:"Id"`
		ExpireTime int64  `json:"ExpireTime"`
	} `json:"Token"`
}

// FetchToken requests a new token. On any non-success response the zero
// values are returned along with an error describing why.
func (s *AliCloudTokenService) FetchToken(ctx context.Context) (string, int64, error) {
	nonce := uuid.NewString()
	if s.nonce != nil {
		nonce = s.nonce()
	}
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	if s.timestamp != nil {
		timestamp = s.timestamp()
	}

	params := map[string]string{
		"AccessKeyId":      s.accessKeyID,
		"Action":           "CreateToken",
		"Format":           "JSON",
		"RegionId":         defaultRegion,
		"SignatureMethod":  "HMAC-SHA1",
		"SignatureNonce":   nonce,
		"SignatureVersion": "1.0",
		"Timestamp":        timestamp,
		"Version":          "2019-07-17",
	}

	query := CanonicalQuery(params)
	signature := Sign(query, s.accessKeySecret)
	fullURL := fmt.Sprintf("%s?Signature=%s&%s", s.endpoint, PercentEncode(signature), query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if parsed.Token.ID == "" {
		return "", 0, fmt.Errorf("token response held no token")
	}

	s.logger.Info("Fetched alicloud token", zap.Int64("expireTime", parsed.Token.ExpireTime))

	return parsed.Token.ID, parsed.Token.ExpireTime, nil
}

// PercentEncode applies the AliCloud signature encoding: RFC 3986 with space
// as %20, '*' as %2A and '~' left bare.
func PercentEncode(text string) string {
	encoded := url.QueryEscape(text)
	return strings.ReplaceAll(encoded, "+", "%20")
}

// CanonicalQuery builds the alphabetically sorted, percent-encoded query
// string the signature is computed over.
func CanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, PercentEncode(k)+"="+PercentEncode(params[k]))
	}
	return strings.Join(pairs, "&")
}

// StringToSign assembles the fixed signing template over a canonical query.
func StringToSign(canonicalQuery string) string {
	return "GET&" + PercentEncode("/") + "&" + PercentEncode(canonicalQuery)
}

// Sign computes the base64 HMAC-SHA1 signature of the canonical query with
// the ampersand-suffixed secret.
func Sign(canonicalQuery, accessKeySecret string) string {
	mac := hmac.New(sha1.New, []byte(accessKeySecret+"&"))
	mac.Write([]byte(StringToSign(canonicalQuery)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
