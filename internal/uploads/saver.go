// Package uploads externalizes inline base64 images to files served under
// the /uploads static route.
package uploads

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

// Subfolders the handlers save into.
const (
	AvatarsSubfolder     = "avatars"
	UserAvatarsSubfolder = "user_avatars"
)

// Saver writes base64 image data URLs to disk and returns their web paths.
type Saver struct {
	baseDir string
	logger  *logging.Logger
}

// NewSaver creates a saver rooted at baseDir (the directory served as
// /uploads).
func NewSaver(baseDir string, logger *logging.Logger) *Saver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Saver{baseDir: baseDir, logger: logger}
}

// Save decodes an image data URL into uploads/<subfolder>/ and returns the
// web path. Anything that is not an image data URL is assumed to already be
// a path and is returned unchanged.
func (s *Saver) Save(data, subfolder string) (string, error) {
	if !strings.HasPrefix(data, "data:image") {
		return data, nil
	}

	meta, payload, found := strings.Cut(strings.TrimPrefix(data, "data:"), ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", fmt.Errorf("uploads: invalid image data URL")
	}
	ext := strings.TrimPrefix(strings.TrimSuffix(meta, ";base64"), "image/")
	if ext == "" {
		return "", fmt.Errorf("uploads: missing image type")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("uploads: failed to decode image data: %w", err)
	}

	targetDir := filepath.Join(s.baseDir, subfolder)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("uploads: failed to create %s: %w", targetDir, err)
	}

	filename := fmt.Sprintf("%d-%s.%s", time.Now().UnixMilli(), randomSuffix(7), ext)
	if err := os.WriteFile(filepath.Join(targetDir, filename), raw, 0o644); err != nil {
		return "", fmt.Errorf("uploads: failed to write image: %w", err)
	}

	webPath := "/uploads/" + subfolder + "/" + filename
	s.logger.Info("image saved", "path", webPath, "bytes", len(raw))
	return webPath, nil
}

// Remove deletes a previously saved upload by its web path. Paths outside
// /uploads are ignored, as are files that no longer exist.
func (s *Saver) Remove(webPath string) error {
	if !strings.HasPrefix(webPath, "/uploads/") {
		return nil
	}
	full := filepath.Join(s.baseDir, strings.TrimPrefix(webPath, "/uploads/"))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("uploads: failed to remove %s: %w", webPath, err)
	}
	return nil
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
