package inbox

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// ImageDir is the media subdirectory chat attachments are stored under.
const ImageDir = "chat_images"

var imageKeyExtensions = map[string]bool{".jpg": true, ".png": true, ".gif": true, ".webp": true}

// IsImageKey reports whether key has the chat_images/<uuid>.<ext> shape the
// image store produces.
func IsImageKey(key string) bool {
	dir, file := path.Split(key)
	if dir != ImageDir+"/" {
		return false
	}
	ext := path.Ext(file)
	if !imageKeyExtensions[ext] {
		return false
	}
	id := strings.TrimSuffix(file, ext)
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}
