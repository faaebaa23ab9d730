package tokenizer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/samogod/trainconf/pkg/config"
	"github.com/samogod/trainconf/pkg/runconfig"
)

var DebugLog func(string, ...interface{})

const (
	TokenizerFile       = "tokenizer.json"
	TokenizerConfigFile = "tokenizer_config.json"
)

// Downloader fetches and caches the tokenizer artifacts a run's
// model.tokenizer block points at, so a selection can be verified to exist
// before the training framework ever sees the document.
type Downloader struct {
	cacheDir string
	force    bool
	client   *http.Client
}

func NewDownloader(cfg config.TokenizerCache) *Downloader {
	cacheDir := cfg.Dir
	if cacheDir == "" {
		cacheDir = config.GetTokenizerCacheDir()
	}

	return &Downloader{
		cacheDir: cacheDir,
		force:    cfg.ForceDownload,
		client:   &http.Client{Transport: &LoggingTransport{Transport: http.DefaultTransport}},
	}
}

// Fetch resolves the tokenizer selection. Only the huggingface library can
// be fetched remotely; sentencepiece and megatron selections point at local
// files and are checked for existence instead.
func (d *Downloader) Fetch(tok runconfig.Tokenizer) (string, error) {
	switch tok.Library {
	case "huggingface":
		if tok.Type == nil || *tok.Type == "" {
			return "", fmt.Errorf("huggingface tokenizer has no type")
		}
		return d.fetchHuggingFace(*tok.Type)
	case "sentencepiece":
		if tok.Model == nil {
			return "", fmt.Errorf("sentencepiece tokenizer has no model file")
		}
		if !fileExists(*tok.Model) {
			return "", fmt.Errorf("sentencepiece model %s not found", *tok.Model)
		}
		return *tok.Model, nil
	case "megatron":
		if tok.VocabFile == nil {
			return "", fmt.Errorf("megatron tokenizer has no vocab file")
		}
		if !fileExists(*tok.VocabFile) {
			return "", fmt.Errorf("vocab file %s not found", *tok.VocabFile)
		}
		return *tok.VocabFile, nil
	default:
		return "", fmt.Errorf("unknown tokenizer library %q", tok.Library)
	}
}

func (d *Downloader) fetchHuggingFace(modelID string) (string, error) {
	modelDir := filepath.Join(d.cacheDir, strings.ReplaceAll(modelID, "/", "--"))
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	baseURL := fmt.Sprintf("https://huggingface.co/%s/resolve/main", modelID)

	files := []struct {
		name string
		path string
		url  string
	}{
		{TokenizerFile, filepath.Join(modelDir, TokenizerFile), baseURL + "/" + TokenizerFile},
		{TokenizerConfigFile, filepath.Join(modelDir, TokenizerConfigFile), baseURL + "/" + TokenizerConfigFile},
	}

	for _, file := range files {
		if d.force || !fileExists(file.path) {
			if DebugLog != nil {
				DebugLog("downloading %s for %s", file.name, modelID)
			}
			if err := d.downloadFile(file.url, file.path); err != nil {
				return "", fmt.Errorf("failed to download %s: %w", file.name, err)
			}
		}
	}

	return filepath.Join(modelDir, TokenizerFile), nil
}

// downloadFile writes to a temp file and renames on success, so a failed
// download never leaves a truncated artifact the cache would later accept.
func (d *Downloader) downloadFile(url, dest string) error {
	resp, err := d.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*")
	if err != nil {
		return err
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), dest)
}

// Info is the subset of tokenizer_config.json worth surfacing in a report.
type Info struct {
	TokenizerClass string `json:"tokenizer_class"`
	ModelMaxLength int    `json:"model_max_length"`
	BOSToken       string `json:"bos_token"`
	EOSToken       string `json:"eos_token"`
}

// LoadInfo reads the cached tokenizer_config.json next to tokenizerPath.
func LoadInfo(tokenizerPath string) (*Info, error) {
	configPath := filepath.Join(filepath.Dir(tokenizerPath), TokenizerConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
