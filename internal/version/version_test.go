package version

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d+\.\d+`), Version())
}

func TestUserAgent(t *testing.T) {
	assert.Regexp(t, `^fetchkit/\d+\.\d+\.\d+ \(\w+/\w+\)$`, UserAgent())
}
