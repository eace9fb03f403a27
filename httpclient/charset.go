package httpclient

import (
	"fmt"
	"mime"

	"golang.org/x/text/encoding/htmlindex"
)

// DefaultCharset decodes bodies whose response names no charset
const DefaultCharset = "utf-8"

// decodeBody converts raw into a string. The charset parameter of
// contentType wins over fallback; an empty fallback means DefaultCharset.
func decodeBody(raw []byte, contentType, fallback string) (string, error) {
	name := fallback
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil && params["charset"] != "" {
			name = params["charset"]
		}
	}
	if name == "" {
		name = DefaultCharset
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("unsupported response charset %q", name), "charset")
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("failed to decode %s response: %v", name, err), "charset")
	}
	return string(decoded), nil
}
