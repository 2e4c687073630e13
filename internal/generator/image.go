package generator

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fumiama/imgsz"

	"github.com/dgallion1/docforge/internal/config"
	"github.com/dgallion1/docforge/internal/ir"
)

const (
	emuPerInch = 914400
	// Extracted raster images carry no reliable DPI; 96 matches how the
	// extraction stage reports pixel dimensions.
	pxPerInch = 96
)

// resolveImage loads and sizes the image of a Figure node. The bytes are
// fully buffered before any document write. The returned dimensions fit
// within the configured maximums while preserving aspect ratio; unknown
// intrinsic dimensions fall back to the configured default size.
//
// A nil error means the image is embeddable; any failure (no reference,
// unreadable path, undecodable data) is returned for the caller to turn
// into a placeholder, never a fatal abort.
func resolveImage(fig *ir.FigureData, cfg config.ImageConfig, baseDir string, maxBytes int64) (data []byte, widthEMU, heightEMU int64, err error) {
	data, err = loadImageBytes(fig, baseDir, maxBytes)
	if err != nil {
		return nil, 0, 0, err
	}

	w, h := fig.WidthPx, fig.HeightPx
	if w <= 0 || h <= 0 {
		sz, _, derr := imgsz.DecodeSize(bytes.NewReader(data))
		if derr != nil {
			return nil, 0, 0, fmt.Errorf("decode image: %w", derr)
		}
		w, h = sz.Width, sz.Height
	} else {
		// Dimensions from the IR may disagree with the data; the data
		// must still be decodable by the embedder.
		if _, _, derr := imgsz.DecodeSize(bytes.NewReader(data)); derr != nil {
			return nil, 0, 0, fmt.Errorf("decode image: %w", derr)
		}
	}

	widthIn, heightIn := fitWithin(w, h, cfg)
	return data, inchesToEMU(widthIn), inchesToEMU(heightIn), nil
}

func loadImageBytes(fig *ir.FigureData, baseDir string, maxBytes int64) ([]byte, error) {
	if len(fig.Data) > 0 {
		return fig.Data, nil
	}
	if fig.Path == "" {
		return nil, fmt.Errorf("figure has no image reference")
	}

	path := fig.Path
	if baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", path, maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", path)
	}
	return data, nil
}

// fitWithin scales pixel dimensions to inches within the configured page
// bounds. Images already inside the bounds keep their natural size.
func fitWithin(wPx, hPx int, cfg config.ImageConfig) (widthIn, heightIn float64) {
	if wPx <= 0 || hPx <= 0 {
		return cfg.DefaultWidthInches, cfg.DefaultHeightInches
	}
	widthIn = float64(wPx) / pxPerInch
	heightIn = float64(hPx) / pxPerInch

	scale := 1.0
	if widthIn > cfg.MaxWidthInches {
		scale = cfg.MaxWidthInches / widthIn
	}
	if s := cfg.MaxHeightInches / heightIn; heightIn > cfg.MaxHeightInches && s < scale {
		scale = s
	}
	return widthIn * scale, heightIn * scale
}

func inchesToEMU(in float64) int64 {
	return int64(in * emuPerInch)
}
