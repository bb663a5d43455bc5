package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://buy.hpe.com/us/en/p/P00930-B21?utm_source=test&cid=123&ref=internal", "https://buy.hpe.com/us/en/p/P00930-B21?ref=internal"},
		{"https://buy.hpe.com/p/x?UTM_MEDIUM=a&ICID=b&gclid=c", "https://buy.hpe.com/p/x"},
		{"https://buy.hpe.com/p/x?cidx=1", "https://buy.hpe.com/p/x?cidx=1"},
		{"Product Not Found", "Product Not Found"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestAbsolutize(t *testing.T) {
	assert.Equal(t, "https://partsurfer.hpe.com/images/a.jpg", Absolutize("/images/a.jpg", PartSurferBase))
	assert.Equal(t, "https://cdn.example.com/a.jpg", Absolutize("//cdn.example.com/a.jpg", PartSurferBase))
	assert.Equal(t, "", Absolutize("", PartSurferBase))
	assert.Equal(t, "", Absolutize("javascript:void(0)", PartSurferBase))
}

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://buy.hpe.com/us/en/p/x", StripQuery("http://buy.hpe.com/us/en/p/x?a=1#top"))
}
