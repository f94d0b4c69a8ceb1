package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/personar/profile-service/internal/core/ports"
)

const frameBoundary = "frame"

// StreamHandler forwards frames from a FrameSource as an MJPEG stream.
type StreamHandler struct {
	source ports.FrameSource
	log    zerolog.Logger
}

func NewStreamHandler(source ports.FrameSource, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{source: source, log: log}
}

// Video handles GET /video. The response never completes on its own; it ends
// when the client disconnects or the source runs dry.
//
// @Summary      MJPEG camera stream
// @Tags         webcam
// @Produce      multipart/x-mixed-replace
// @Success      200
// @Router       /video [get]
func (h *StreamHandler) Video(c echo.Context) error {
	ctx := c.Request().Context()
	res := c.Response()

	mw := multipart.NewWriter(res)
	if err := mw.SetBoundary(frameBoundary); err != nil {
		return err
	}

	res.Header().Set(echo.HeaderContentType, "multipart/x-mixed-replace; boundary="+frameBoundary)
	res.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	res.Header().Set("Connection", "close")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	var frames int
	for {
		frame, err := h.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				_ = mw.Close()
				res.Flush()
				h.log.Info().Int("frames", frames).Msg("frame source ended")
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				h.log.Debug().Int("frames", frames).Msg("stream client went away")
			default:
				h.log.Error().Err(err).Int("frames", frames).Msg("frame source failed")
			}
			return nil
		}

		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(frame))},
		})
		if err != nil {
			return nil
		}
		if _, err := part.Write(frame); err != nil {
			return nil
		}
		res.Flush()
		frames++
	}
}
