// Package webcam provides frame sources for the MJPEG stream.
package webcam

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const (
	defaultFPS   = 10
	jpegQuality  = 80
	maxFrameSide = 4096
)

var frameExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true}

// DirSource replays the images of a directory as an endless camera feed at a
// fixed frame rate. Frames wider than maxWidth are down-scaled. The sequence
// cannot be restarted: once Next fails it keeps failing with the same error.
type DirSource struct {
	mu       sync.Mutex
	files    []string
	next     int
	maxWidth int
	ticker   *time.Ticker
	err      error
}

// OpenDir lists the image files in dir. fps <= 0 uses defaultFPS; maxWidth
// <= 0 disables scaling.
func OpenDir(dir string, fps, maxWidth int) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image frames in %s", dir)
	}
	sort.Strings(files)

	if fps <= 0 {
		fps = defaultFPS
	}
	return &DirSource{
		files:    files,
		maxWidth: maxWidth,
		ticker:   time.NewTicker(time.Second / time.Duration(fps)),
	}, nil
}

// Next waits for the next frame slot and returns the encoded JPEG.
func (s *DirSource) Next(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ticker.C:
	}

	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)

	frame, err := encodeFrame(path, s.maxWidth)
	if err != nil {
		s.err = err
		return nil, err
	}
	return frame, nil
}

// Close ends the sequence; later calls to Next return io.EOF.
func (s *DirSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticker.Stop()
	if s.err == nil {
		s.err = io.EOF
	}
	return nil
}

func encodeFrame(path string, maxWidth int) ([]byte, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from the configured frame dir
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxFrameSide || bounds.Dy() > maxFrameSide {
		return nil, errors.New("frame exceeds maximum dimensions")
	}

	if maxWidth > 0 && bounds.Dx() > maxWidth {
		h := bounds.Dy() * maxWidth / bounds.Dx()
		if h < 1 {
			h = 1
		}
		resized := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
