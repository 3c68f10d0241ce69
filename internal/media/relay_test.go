package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/domain"
)

type fakeFiles struct {
	urls        map[string]string
	data        map[string][]byte
	resolveErr  error
	downloadErr map[string]error
}

func (f *fakeFiles) ResolveFileURL(_ context.Context, fileID string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.urls[fileID], nil
}

func (f *fakeFiles) DownloadFile(_ context.Context, url string) ([]byte, error) {
	if err := f.downloadErr[url]; err != nil {
		return nil, err
	}
	return f.data[url], nil
}

func TestFetchReferenceCarriesMetadataOnly(t *testing.T) {
	files := &fakeFiles{urls: map[string]string{"f1": "https://files.example/f1"}}
	relay := NewRelay(files, config.StorageConfig{}, config.SpeechConfig{}, zap.NewNop())

	ref, err := relay.FetchReference(context.Background(), "f1", 800, 600, 12345)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if ref.SourceURL != "https://files.example/f1" || ref.Width != 800 || ref.ByteSize != 12345 {
		t.Fatalf("ref = %+v", ref)
	}
}

func TestFetchReferenceResolveFailure(t *testing.T) {
	files := &fakeFiles{resolveErr: errors.New("file expired")}
	relay := NewRelay(files, config.StorageConfig{}, config.SpeechConfig{}, zap.NewNop())

	if _, err := relay.FetchReference(context.Background(), "f1", 0, 0, 0); err == nil {
		t.Fatal("resolve failure must surface")
	}
}

func TestUploadKeepsSlotOrder(t *testing.T) {
	var puts []string
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		puts = append(puts, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	files := &fakeFiles{
		urls: map[string]string{},
		data: map[string][]byte{
			"https://files.example/a": []byte("aaa"),
			"https://files.example/c": []byte("ccc"),
		},
		downloadErr: map[string]error{
			"https://files.example/b": errors.New("gone"),
		},
	}
	relay := NewRelay(files, config.StorageConfig{
		EndpointURL: storage.URL,
		Bucket:      "photos",
		PublicURL:   "https://cdn.example/photos",
	}, config.SpeechConfig{}, zap.NewNop())

	refs := []domain.PhotoRef{
		{FileID: "a", SourceURL: "https://files.example/a"},
		{FileID: "b", SourceURL: "https://files.example/b"},
		{FileID: "c", SourceURL: "https://files.example/c"},
	}
	urls := relay.Upload(context.Background(), refs, "key-1")

	if len(urls) != 3 {
		t.Fatalf("result must keep one slot per input, got %d", len(urls))
	}
	if urls[0] == "" || urls[2] == "" {
		t.Fatalf("successful uploads must fill their slots: %v", urls)
	}
	if urls[1] != "" {
		t.Fatalf("failed upload must leave its slot empty: %v", urls)
	}
	if !strings.HasPrefix(urls[0], "https://cdn.example/photos/key-1/0-") {
		t.Errorf("url[0] = %q", urls[0])
	}
	if len(puts) != 2 {
		t.Errorf("expected 2 object puts, got %d", len(puts))
	}
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotContentType string
	stt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"text":"крючки закончились"}`))
	}))
	defer stt.Close()

	relay := NewRelay(&fakeFiles{}, config.StorageConfig{}, config.SpeechConfig{
		EndpointURL: stt.URL,
		APIKey:      "key-1",
	}, zap.NewNop())

	text, err := relay.Transcribe(context.Background(), []byte{0x4f, 0x67})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "крючки закончились" {
		t.Fatalf("text = %q", text)
	}
	if gotAuth != "Api-Key key-1" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotContentType != "audio/ogg" {
		t.Errorf("content type = %q", gotContentType)
	}
}

func TestTranscribeEmptyTranscriptIsError(t *testing.T) {
	stt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"text":"  "}`))
	}))
	defer stt.Close()

	relay := NewRelay(&fakeFiles{}, config.StorageConfig{}, config.SpeechConfig{EndpointURL: stt.URL}, zap.NewNop())
	if _, err := relay.Transcribe(context.Background(), []byte{0x4f}); err == nil {
		t.Fatal("empty transcript must be an error")
	}
}

func TestTranscribeUnconfigured(t *testing.T) {
	relay := NewRelay(&fakeFiles{}, config.StorageConfig{}, config.SpeechConfig{}, zap.NewNop())
	if _, err := relay.Transcribe(context.Background(), nil); err == nil {
		t.Fatal("missing endpoint must be an error")
	}
}
