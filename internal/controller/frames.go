package controller

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

var errOddFrame = errors.New("frame has an odd number of hex digits")

// frameDecoder turns hex frames into images. The decoded bytes live in a
// pooled buffer that is handed back as soon as the image is decoded, so a
// long stream reuses a handful of buffers.
type frameDecoder struct {
	pool        sync.Pool
	outstanding atomic.Int64
}

func newFrameDecoder() *frameDecoder {
	return &frameDecoder{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, 0, 256*1024)
				return &b
			},
		},
	}
}

// decode converts one hex frame into an image
func (f *frameDecoder) decode(hexFrame string) (image.Image, error) {
	if len(hexFrame) == 0 {
		return nil, errors.New("empty frame")
	}
	if len(hexFrame)%2 != 0 {
		return nil, errOddFrame
	}

	buf := f.acquire(hex.DecodedLen(len(hexFrame)))
	defer f.release(buf)

	n, err := hex.Decode(*buf, []byte(hexFrame))
	if err != nil {
		return nil, fmt.Errorf("decode frame hex: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader((*buf)[:n]), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode frame image: %w", err)
	}
	return img, nil
}

func (f *frameDecoder) acquire(size int) *[]byte {
	f.outstanding.Add(1)
	buf := f.pool.Get().(*[]byte)
	if cap(*buf) < size {
		*buf = make([]byte, size)
	}
	*buf = (*buf)[:size]
	return buf
}

func (f *frameDecoder) release(buf *[]byte) {
	*buf = (*buf)[:0]
	f.pool.Put(buf)
	f.outstanding.Add(-1)
}

// inFlight returns the number of buffers not yet released
func (f *frameDecoder) inFlight() int64 {
	return f.outstanding.Load()
}
