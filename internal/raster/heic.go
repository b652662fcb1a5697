package raster

import (
	"context"
	"fmt"
	"strings"
)

// convertHEIC turns HEIC/HEIF bytes into PNG bytes through an ImageMagick-compatible
// converter reading stdin and writing stdout, so nothing touches disk.
func convertHEIC(ctx context.Context, r Runner, converter string, data []byte) ([]byte, error) {
	var args []string
	switch converter {
	case "magick", "convert": // convert is ImageMagick 6
		args = []string{"heic:-", "png:-"}
	default:
		return nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to magick or convert (got %q)", converter)
	}
	out, errb, err := r.Run(ctx, converter, data, args...)
	if err != nil {
		return nil, fmt.Errorf("%s convert failed: %w: %s", converter, err, strings.TrimSpace(truncate(string(errb), 512)))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s produced no output", converter)
	}
	return out, nil
}
