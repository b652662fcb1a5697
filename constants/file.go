package constants

import "strings"

// Document formats produced by MapMimeToFormat.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	HEIC  = "HEIC"
)

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeGIF  = "image/gif"
	MimeWEBP = "image/webp"
	MimeBMP  = "image/bmp"
	MimeTIFF = "image/tiff"
	MimeHEIC = "image/heic"
	MimeHEIF = "image/heif"
)

// AllowedExtensions maps the file extensions picked up by directory scans to their MIME type.
var AllowedExtensions = map[string]string{
	"pdf":  MimePDF,
	"jpg":  MimeJPEG,
	"jpeg": MimeJPEG,
	"png":  MimePNG,
	"gif":  MimeGIF,
	"webp": MimeWEBP,
	"bmp":  MimeBMP,
	"tif":  MimeTIFF,
	"tiff": MimeTIFF,
	"heic": MimeHEIC,
	"heif": MimeHEIF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeFromExt returns the MIME type for a known extension, or "" if unsupported.
func MimeFromExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// NormalizeMime lowercases a MIME type and strips parameters ("image/png; charset=x" -> "image/png").
func NormalizeMime(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if mt == "image/jpg" || mt == "image/pjpeg" {
		return MimeJPEG
	}
	return mt
}

// MapMimeToFormat classifies a MIME type; "" means unsupported.
func MapMimeToFormat(mimeType string) string {
	switch NormalizeMime(mimeType) {
	case MimePDF:
		return PDF
	case MimeJPEG, MimePNG, MimeGIF, MimeWEBP, MimeBMP, MimeTIFF:
		return IMAGE
	case MimeHEIC, MimeHEIF:
		return HEIC
	default:
		return ""
	}
}
