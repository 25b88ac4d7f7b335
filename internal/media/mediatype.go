package media

import (
	"mime"
	"strings"
)

const defaultContentType = "image/jpeg"

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// normalizeContentType strips parameters and lower-cases the media type.
// An absent header means jpeg.
func normalizeContentType(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(header, ";", 2)[0])
	}
	return strings.ToLower(mediaType)
}

func IsSupportedImageType(contentType string) bool {
	_, ok := allowedTypes[normalizeContentType(contentType)]
	return ok
}

// ExtensionFor maps an allowed image type to its file extension, jpg otherwise.
func ExtensionFor(contentType string) string {
	if ext, ok := allowedTypes[normalizeContentType(contentType)]; ok {
		return ext
	}
	return "jpg"
}
