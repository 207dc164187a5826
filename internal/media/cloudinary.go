package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TCoder4k/engmasterai-backend/internal/config"
)

// Uploader stores binary assets on the media host.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (url, publicID string, err error)
	Delete(ctx context.Context, publicID string) error
}

// CloudinaryClient talks to the Cloudinary upload API. Uploads use an
// unsigned preset; deletes are signed with the account secret.
type CloudinaryClient struct {
	baseURL      string
	cloudName    string
	uploadPreset string
	apiKey       string
	apiSecret    string
	httpClient   *http.Client
}

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// NewCloudinaryClient builds a client from config.
func NewCloudinaryClient(cfg config.MediaConfig) (*CloudinaryClient, error) {
	if cfg.CloudName == "" {
		return nil, errors.New("cloudinary cloud name is required")
	}
	return &CloudinaryClient{
		baseURL:      defaultBaseURL,
		cloudName:    cfg.CloudName,
		uploadPreset: cfg.UploadPreset,
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the file as multipart form data and returns the hosted URL.
func (c *CloudinaryClient) Upload(ctx context.Context, filename string, content io.Reader) (string, string, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", "", err
	}
	if err := writer.WriteField("upload_preset", c.uploadPreset); err != nil {
		return "", "", err
	}
	if err := writer.WriteField("public_id", "avatars/"+uuid.NewString()); err != nil {
		return "", "", err
	}
	if err := writer.Close(); err != nil {
		return "", "", err
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("cloudinary upload failed: %s", parsed.Error.Message)
	}
	return parsed.SecureURL, parsed.PublicID, nil
}

// Delete destroys an asset by public id using a signed request.
func (c *CloudinaryClient) Delete(ctx context.Context, publicID string) error {
	if c.apiKey == "" || c.apiSecret == "" {
		return errors.New("cloudinary api credentials not configured")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := c.sign("public_id=" + publicID + "&timestamp=" + timestamp)

	var body strings.Builder
	writer := multipart.NewWriter(&body)
	for field, value := range map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
		"api_key":   c.apiKey,
		"signature": signature,
	} {
		if err := writer.WriteField(field, value); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudinary destroy failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *CloudinaryClient) sign(params string) string {
	sum := sha1.Sum([]byte(params + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

// PublicIDFromURL extracts the public id from a hosted asset URL, or
// returns empty when the URL is not a Cloudinary delivery URL.
func PublicIDFromURL(url string) string {
	idx := strings.Index(url, "/upload/")
	if idx < 0 {
		return ""
	}
	rest := url[idx+len("/upload/"):]
	// strip the version segment (v123456/) when present
	if strings.HasPrefix(rest, "v") {
		if slash := strings.Index(rest, "/"); slash > 0 {
			if _, err := strconv.Atoi(rest[1:slash]); err == nil {
				rest = rest[slash+1:]
			}
		}
	}
	if dot := strings.LastIndex(rest, "."); dot > 0 {
		rest = rest[:dot]
	}
	return rest
}
