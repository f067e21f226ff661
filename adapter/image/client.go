package image

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"music-box/pkg/logger"
)

const (
	defaultTimeout = 10 * time.Second
	maxImageBytes  = 10 << 20
)

type Config struct {
	OutputPath string
}

// Client keeps artwork as local files so notifications can show them.
type Client struct {
	cfg  *Config
	log  *logger.Zerolog
	http *http.Client
}

func NewImageClient(cfg *Config, log *logger.Zerolog) (*Client, error) {
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(os.TempDir(), "music-box-artwork")
	}
	if err := os.MkdirAll(cfg.OutputPath, 0o755); err != nil {
		return nil, errors.Wrap(err, "create artwork directory")
	}

	return &Client{
		cfg:  cfg,
		log:  log,
		http: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Put stores data under key and returns the file path.
func (c *Client) Put(key, ext string, data []byte) (string, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "jpg"
	}

	p := filepath.Join(c.cfg.OutputPath, sanitize(key)+"."+ext)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write artwork")
	}
	return p, nil
}

// Get resolves a locator to a local file, downloading http(s) urls once.
func (c *Client) Get(locator string) (string, error) {
	if locator == "" {
		return "", nil
	}
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		return locator, nil
	}

	sum := sha1.Sum([]byte(locator))
	ext := path.Ext(strings.SplitN(locator, "?", 2)[0])
	if ext == "" || len(ext) > 5 {
		ext = ".img"
	}
	p := filepath.Join(c.cfg.OutputPath, hex.EncodeToString(sum[:])+ext)

	if _, err := os.Stat(p); err == nil {
		return p, nil
	}

	resp, err := c.http.Get(locator)
	if err != nil {
		return "", errors.Wrap(err, "download artwork")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("download artwork: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", errors.Wrap(err, "read artwork")
	}

	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write artwork")
	}

	c.log.Debug().Msgf("artwork %s saved to %s", locator, p)

	return p, nil
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}
