package gyazo

import "strings"

const directHost = "https://i.gyazo.com/"

// DirectURL derives the canonical direct-access URL for an uploaded image.
// The extension is taken from the substring after the last "." of the
// result's reference URL, defaulting to "jpg" when none is present. This is
// a suffix heuristic, not content-type inspection; Gyazo tolerates extension
// mismatches in its redirect behavior.
func DirectURL(result UploadResult) string {
	ext := "jpg"
	if idx := strings.LastIndex(result.URL, "."); idx >= 0 {
		ext = result.URL[idx+1:]
	}
	return directHost + result.ImageID + "." + ext
}
