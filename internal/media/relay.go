package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/domain"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// FileSource resolves and downloads transport-hosted files.
type FileSource interface {
	ResolveFileURL(ctx context.Context, fileID string) (string, error)
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}

// Relay bridges the conversation to media systems: metadata probes during the
// conversation, byte transfer to object storage and speech-to-text only when
// asked. Photo bytes never move before finalize.
type Relay struct {
	files   FileSource
	http    *http.Client
	storage config.StorageConfig
	speech  config.SpeechConfig
	logger  *zap.Logger
}

// NewRelay constructs the relay.
func NewRelay(files FileSource, storage config.StorageConfig, speech config.SpeechConfig, logger *zap.Logger) *Relay {
	timeout := time.Duration(speech.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Relay{
		files:   files,
		http:    &http.Client{Timeout: timeout},
		storage: storage,
		speech:  speech,
		logger:  logger,
	}
}

// FetchReference captures a lightweight reference to an attachment: the
// transport metadata plus a resolved source URL. No bytes move.
func (r *Relay) FetchReference(ctx context.Context, fileID string, width, height int, byteSize int64) (domain.PhotoRef, error) {
	sourceURL, err := r.files.ResolveFileURL(ctx, fileID)
	if err != nil {
		return domain.PhotoRef{}, err
	}
	return domain.PhotoRef{
		FileID:    fileID,
		Width:     width,
		Height:    height,
		ByteSize:  byteSize,
		SourceURL: sourceURL,
	}, nil
}

// Upload materializes references to permanent URLs, in order. Each item is
// best-effort: a failed fetch or store leaves its slot empty and the rest
// continue. The result always has one slot per input.
func (r *Relay) Upload(ctx context.Context, refs []domain.PhotoRef, namespace string) []string {
	urls := make([]string, len(refs))
	for i, ref := range refs {
		url, err := r.uploadOne(ctx, ref, namespace, i)
		if err != nil {
			r.logger.Warn("photo upload failed",
				zap.String("file_id", ref.FileID),
				zap.Int("position", i),
				zap.Error(err))
			continue
		}
		urls[i] = url
	}
	return urls
}

func (r *Relay) uploadOne(ctx context.Context, ref domain.PhotoRef, namespace string, position int) (string, error) {
	data, err := r.files.DownloadFile(ctx, ref.SourceURL)
	if err != nil {
		return "", err
	}

	// collision-proof object name: namespace + position + random suffix
	objectKey := fmt.Sprintf("%s/%d-%s.jpg", namespace, position, uuid.NewString())
	target := fmt.Sprintf("%s/%s/%s", strings.TrimRight(r.storage.EndpointURL, "/"), r.storage.Bucket, objectKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Access-Key", r.storage.AccessKey)
	req.Header.Set("X-Secret-Key", r.storage.SecretKey)

	resp, err := r.http.Do(req)
	if err != nil {
		return "", apperrors.NewExternalServiceError("object storage", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", apperrors.NewExternalServiceError("object storage",
			fmt.Errorf("upload returned %d", resp.StatusCode))
	}

	public := r.storage.PublicURL
	if public == "" {
		public = fmt.Sprintf("%s/%s", strings.TrimRight(r.storage.EndpointURL, "/"), r.storage.Bucket)
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(public, "/"), objectKey), nil
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe sends voice bytes to the speech-to-text endpoint. May take
// seconds; callers hold no lock that other users wait on.
func (r *Relay) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if r.speech.EndpointURL == "" {
		return "", apperrors.NewExternalServiceError("speech-to-text", fmt.Errorf("not configured"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.speech.EndpointURL, bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "audio/ogg")
	if r.speech.APIKey != "" {
		req.Header.Set("Authorization", "Api-Key "+r.speech.APIKey)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return "", apperrors.NewExternalServiceError("speech-to-text", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewExternalServiceError("speech-to-text",
			fmt.Errorf("transcribe returned %d", resp.StatusCode))
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.NewExternalServiceError("speech-to-text", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", apperrors.NewExternalServiceError("speech-to-text", fmt.Errorf("empty transcript"))
	}
	return parsed.Text, nil
}
