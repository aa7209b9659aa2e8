package streamcapture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// DefaultJPEGQuality is used when JPEGEncoder.Quality is zero
const DefaultJPEGQuality = 90

// JPEGEncoder turns frames into JPEG stills.
//
// RGB frames are compressed; JPEG/MJPEG frames are copied through after a
// marker check. The returned Still never aliases frame memory, so the frame
// can be released as soon as Encode returns.
type JPEGEncoder struct {
	Quality int
}

// Encode converts frame into a still. width and height are used when the
// frame does not carry its own dimensions.
func (e JPEGEncoder) Encode(frame *Frame, width, height int) (Still, error) {
	if frame == nil {
		return Still{}, fmt.Errorf("stream-capture: encode: nil frame")
	}
	if frame.Released() {
		return Still{}, fmt.Errorf("stream-capture: encode: frame %d already released", frame.Seq)
	}
	if frame.Width > 0 && frame.Height > 0 {
		width, height = frame.Width, frame.Height
	}

	switch frame.Format {
	case FormatJPEG:
		return passthroughJPEG(frame.Data, width, height)
	case FormatRGB:
		return e.encodeRGB(frame.Data, width, height)
	default:
		return Still{}, fmt.Errorf("stream-capture: encode: unsupported pixel format %s", frame.Format)
	}
}

func (e JPEGEncoder) encodeRGB(data []byte, width, height int) (Still, error) {
	if width <= 0 || height <= 0 {
		return Still{}, fmt.Errorf("stream-capture: encode: invalid dimensions %dx%d", width, height)
	}
	if want := width * height * 3; len(data) < want {
		return Still{}, fmt.Errorf("stream-capture: encode: short RGB buffer (got %d bytes, want %d)", len(data), want)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < width*height; i, j = i+1, j+3 {
		img.Pix[i*4] = data[j]
		img.Pix[i*4+1] = data[j+1]
		img.Pix[i*4+2] = data[j+2]
		img.Pix[i*4+3] = 0xff
	}

	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Still{}, fmt.Errorf("stream-capture: encode: %w", err)
	}

	return Still{MIMEType: "image/jpeg", Width: width, Height: height, Data: buf.Bytes()}, nil
}

func passthroughJPEG(data []byte, width, height int) (Still, error) {
	// SOI marker
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return Still{}, fmt.Errorf("stream-capture: encode: frame is not a JPEG (%d bytes)", len(data))
	}

	if width <= 0 || height <= 0 {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return Still{}, fmt.Errorf("stream-capture: encode: %w", err)
		}
		width, height = cfg.Width, cfg.Height
	}

	out := make([]byte, len(data))
	copy(out, data)
	return Still{MIMEType: "image/jpeg", Width: width, Height: height, Data: out}, nil
}
