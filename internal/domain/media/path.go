package media

import (
	"errors"
	"path"
	"regexp"
	"strings"
)

// clientVideoExts is the allow-list used when a file carries no video/* type.
var clientVideoExts = map[string]bool{
	"mp4":  true,
	"avi":  true,
	"mov":  true,
	"wmv":  true,
	"mkv":  true,
	"flv":  true,
	"webm": true,
	"3gp":  true,
}

// serverVideoExts additionally accepts container formats the conversion server can read.
var serverVideoExts = map[string]bool{
	"mp4": true, "avi": true, "mov": true, "wmv": true, "mkv": true, "flv": true, "webm": true,
	"3gp": true, "ts": true, "mpg": true, "mpeg": true, "m4v": true, "mts": true, "m2ts": true,
}

var unsafeNameChars = regexp.MustCompile(`[^\w.-]`)

// IsSupportedVideoExt reports whether ext (with or without the dot) is on the client allow-list.
func IsSupportedVideoExt(ext string) bool {
	return clientVideoExts[normalizeExt(ext)]
}

// IsAcceptedUploadExt reports whether the conversion server accepts ext.
func IsAcceptedUploadExt(ext string) bool {
	return serverVideoExts[normalizeExt(ext)]
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// SanitizeUploadName strips directories and unsafe characters from an uploaded file name.
func SanitizeUploadName(raw string) (string, error) {
	value := strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	if value == "" {
		return "", errors.New("invalid file name")
	}

	name := unsafeNameChars.ReplaceAllString(path.Base(value), "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "", errors.New("invalid file name")
	}

	if !IsAcceptedUploadExt(path.Ext(name)) {
		return "", errors.New("unsupported file type")
	}
	return name, nil
}
