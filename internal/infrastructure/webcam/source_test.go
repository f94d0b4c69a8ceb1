package webcam

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func decodeJPEG(t *testing.T, frame []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	return img
}

func TestDirSource_CyclesAndScales(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 64, 32)
	writePNG(t, filepath.Join(dir, "b.png"), 16, 16)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))

	src, err := OpenDir(dir, 200, 32)
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	widths := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		frame, err := src.Next(ctx)
		require.NoError(t, err)
		widths = append(widths, decodeJPEG(t, frame).Bounds().Dx())
	}

	assert.Equal(t, []int{32, 16, 32, 16}, widths)
}

func TestDirSource_CloseEndsSequence(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 8)

	src, err := OpenDir(dir, 200, 0)
	require.NoError(t, err)
	require.NoError(t, src.Close())

	for i := 0; i < 2; i++ {
		_, err := src.Next(context.Background())
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestDirSource_HonoursContext(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 8)

	src, err := OpenDir(dir, 1, 0)
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = src.Next(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDirSource_DecodeFailureIsSticky(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not an image"), 0o600))

	src, err := OpenDir(dir, 200, 0)
	require.NoError(t, err)
	defer src.Close()

	_, first := src.Next(context.Background())
	require.Error(t, first)
	_, second := src.Next(context.Background())
	assert.Equal(t, first, second)
}

func TestOpenDir_Errors(t *testing.T) {
	_, err := OpenDir(filepath.Join(t.TempDir(), "missing"), 10, 0)
	assert.Error(t, err)

	_, err = OpenDir(t.TempDir(), 10, 0)
	assert.Error(t, err)
}
