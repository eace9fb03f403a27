package httpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name        string
		raw         []byte
		contentType string
		fallback    string
		want        string
	}{
		{name: "default utf-8", raw: []byte("héllo"), want: "héllo"},
		{name: "fallback charset", raw: []byte{0xC4, 0xE3, 0xBA, 0xC3}, contentType: "text/plain", fallback: "gbk", want: "你好"},
		{name: "response charset wins", raw: []byte{0xE9}, contentType: "text/plain; charset=ISO-8859-1", fallback: "gbk", want: "é"},
		{name: "unparseable content type uses fallback", raw: []byte("ok"), contentType: ";;", fallback: "utf-8", want: "ok"},
		{name: "empty body", raw: nil, contentType: "application/json", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody(tt.raw, tt.contentType, tt.fallback)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBodyUnknownCharset(t *testing.T) {
	_, err := decodeBody([]byte("x"), "text/plain; charset=klingon", "")
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ValidationError))
	assert.Contains(t, err.Error(), "klingon")
}
