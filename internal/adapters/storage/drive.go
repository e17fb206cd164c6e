package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/ports"
)

const (
	defaultAPIBaseURL = "https://www.googleapis.com/drive/v3"
	defaultTokenURL   = "https://oauth2.googleapis.com/token"
	readonlyScope     = "https://www.googleapis.com/auth/drive.readonly"
)

// DriveStorage reads bundle folders from Google Drive with a service-account
// credential. Authentication uses the OAuth2 JWT bearer flow; the token
// source caches and refreshes access tokens internally.
type DriveStorage struct {
	apiBaseURL string
	httpClient *http.Client
}

type DriveConfig struct {
	// KeyFile is the service-account JSON key path.
	KeyFile    string
	APIBaseURL string
	// HTTPTimeout bounds every Drive call in addition to caller contexts.
	HTTPTimeout time.Duration
}

type serviceAccountKey struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

func NewDriveStorage(cfg DriveConfig) (*DriveStorage, error) {
	raw, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, errors.New("service account key missing client_email or private_key")
	}

	tokenURL := key.TokenURI
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	jwtCfg := &jwt.Config{
		Email:        key.ClientEmail,
		PrivateKey:   []byte(key.PrivateKey),
		PrivateKeyID: key.PrivateKeyID,
		Scopes:       []string{readonlyScope},
		TokenURL:     tokenURL,
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := oauth2.NewClient(context.Background(), jwtCfg.TokenSource(context.Background()))
	httpClient.Timeout = timeout

	apiBaseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	return &DriveStorage{
		apiBaseURL: apiBaseURL,
		httpClient: httpClient,
	}, nil
}

type fileListResponse struct {
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

func (s *DriveStorage) ListFolder(ctx context.Context, folderID string) ([]ports.FileInfo, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
	query.Set("fields", "files(id, name)")

	res, err := s.get(ctx, s.apiBaseURL+"/files?"+query.Encode())
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list folder: drive returned status %d", res.StatusCode)
	}

	var parsed fileListResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	out := make([]ports.FileInfo, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		out = append(out, ports.FileInfo{FileID: f.ID, Name: f.Name})
	}
	return out, nil
}

type fileMetaResponse struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// Fetch resolves the display name first, then opens the media stream.
// The caller owns the returned body.
func (s *DriveStorage) Fetch(ctx context.Context, fileID string) (ports.FileHandle, error) {
	escaped := url.PathEscape(fileID)

	metaRes, err := s.get(ctx, s.apiBaseURL+"/files/"+escaped+"?fields=name%2Csize")
	if err != nil {
		return ports.FileHandle{}, err
	}
	meta, err := decodeMeta(metaRes)
	if err != nil {
		return ports.FileHandle{}, err
	}

	name := meta.Name
	if name == "" {
		name = "download.pdf"
	}
	var size int64
	if meta.Size != "" {
		size, _ = strconv.ParseInt(meta.Size, 10, 64)
	}

	mediaRes, err := s.get(ctx, s.apiBaseURL+"/files/"+escaped+"?alt=media")
	if err != nil {
		return ports.FileHandle{}, err
	}
	if mediaRes.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, mediaRes.Body)
		_ = mediaRes.Body.Close()
		return ports.FileHandle{}, fmt.Errorf("fetch media: drive returned status %d", mediaRes.StatusCode)
	}

	return ports.FileHandle{
		Name:    name,
		Size:    size,
		Content: mediaRes.Body,
	}, nil
}

func (s *DriveStorage) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build drive request: %w", err)
	}
	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive request: %w", err)
	}
	return res, nil
}

func decodeMeta(res *http.Response) (fileMetaResponse, error) {
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()
	if res.StatusCode != http.StatusOK {
		return fileMetaResponse{}, fmt.Errorf("fetch metadata: drive returned status %d", res.StatusCode)
	}
	var meta fileMetaResponse
	if err := json.NewDecoder(res.Body).Decode(&meta); err != nil {
		return fileMetaResponse{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}
