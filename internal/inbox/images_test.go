package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImageKey(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"chat_images/0b6f3c2e-6f7a-4d7e-9a51-2f1c3d4e5f60.png", true},
		{"chat_images/0b6f3c2e-6f7a-4d7e-9a51-2f1c3d4e5f60.webp", true},
		{"chat_images/0b6f3c2e-6f7a-4d7e-9a51-2f1c3d4e5f60.exe", false},
		{"chat_images/../../etc/passwd", false},
		{"https://example.com/0b6f3c2e-6f7a-4d7e-9a51-2f1c3d4e5f60.png", false},
		{"avatars/0b6f3c2e-6f7a-4d7e-9a51-2f1c3d4e5f60.png", false},
		{"chat_images/not-a-uuid.png", false},
		{"chat_images/0B6F3C2E-6F7A-4D7E-9A51-2F1C3D4E5F60.png", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			assert.Equal(t, tc.want, IsImageKey(tc.key))
		})
	}
}
