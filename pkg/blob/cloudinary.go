package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains the credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore implements Store backed by Cloudinary. Save uploads the
// asset and returns its secure URL as the path; Get fetches the URL bytes
// back over HTTP.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	http   *http.Client
	logger zerolog.Logger
}

// NewCloudinaryStore constructs a Cloudinary-backed store.
func NewCloudinaryStore(cfg CloudinaryConfig, logger zerolog.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryStore{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "cloudinary_blob_store").Logger(),
	}, nil
}

// Save uploads the content and returns the secure URL.
func (s *CloudinaryStore) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     buildPublicID(name),
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, content, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return result.SecureURL, nil
}

// Get downloads the asset bytes from its secure URL.
func (s *CloudinaryStore) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("build asset request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch asset: unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Delete destroys the asset derived from the secure URL.
func (s *CloudinaryStore) Delete(ctx context.Context, path string) error {
	publicID := publicIDFromURL(path, s.folder)
	if publicID == "" {
		return nil
	}

	_, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("destroy asset: %w", err)
	}

	return nil
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "asset"
	}

	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano())
}

func publicIDFromURL(url, folder string) string {
	idx := strings.Index(url, "/upload/")
	if idx < 0 {
		return ""
	}

	rest := url[idx+len("/upload/"):]
	// Strip the version segment and the file extension.
	if slash := strings.IndexByte(rest, '/'); slash >= 0 && strings.HasPrefix(rest, "v") {
		rest = rest[slash+1:]
	}
	rest = strings.TrimSuffix(rest, filepath.Ext(rest))
	if folder != "" && !strings.HasPrefix(rest, folder+"/") {
		return folder + "/" + rest
	}

	return rest
}
