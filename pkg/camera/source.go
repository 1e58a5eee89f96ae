package camera

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
)

// ErrEndOfStream is returned by Next when no more frames will arrive.
var ErrEndOfStream = errors.New("camera: end of stream")

// Source produces frames on demand.
// Any error from Next ends the consumer's loop; there are no retries.
type Source interface {
	Next() (image.Image, error)
	Close() error
}

// Open resolves a source string: a device index ("0"), webrtc://host[:port]
// for a remote camera, a directory of images, or a video file. cfg applies
// to devices only.
func Open(source string, cfg Config) (Source, error) {
	if source == "" {
		return nil, errors.New("camera: empty source")
	}

	if host, ok := strings.CutPrefix(source, "webrtc://"); ok {
		wcfg := DefaultWebRTCConfig(host)
		if strings.Contains(host, ":") {
			wcfg.SignallingURL = "ws://" + host
		}
		src, err := DialWebRTC(wcfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	if idx, err := strconv.Atoi(source); err == nil {
		cfg.Device = idx
		src, err := OpenDevice(cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	if info.IsDir() {
		src, err := OpenDir(source)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := OpenFile(source)
	if err != nil {
		return nil, err
	}
	return src, nil
}
