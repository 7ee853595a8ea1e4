package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestEnsureUTF8Bytes(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("接口描述"))
	assert.NoError(t, err)

	assert.Equal(t, "接口描述", EnsureUTF8Bytes(gbk))
	assert.Equal(t, "plain", EnsureUTF8("plain"))
	assert.Empty(t, EnsureUTF8Bytes(nil))
}

func TestNormalizeOutput(t *testing.T) {
	raw := "\x1b[0mInterface  Status   \r\nGi0/1      up\r\n  ---- More ----\x08\x08\x08\x08\x08\x08\x08\x08\x08\x08\x08\x08\x08\x08\x08Gi0/2      down\r\n\r\n"

	assert.Equal(t, "Interface  Status\nGi0/1      up\nGi0/2      down", NormalizeOutput([]byte(raw)))
}
