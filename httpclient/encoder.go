package httpclient

import (
	"bytes"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"slices"
)

const (
	// ContentField is the multipart field carrying the binary payload
	ContentField = "content"

	// SliceIDKey names the parameter used as the payload filename
	SliceIDKey = "slice_id"

	// FormContentType is sent with form encoded requests
	FormContentType = "application/x-www-form-urlencoded; charset=utf-8"

	textPartContentType   = "text/plain; charset=UTF-8"
	binaryPartContentType = "application/octet-stream"
)

// Encoding labels a request body shape in logs, spans and metrics
type Encoding string

const (
	EncodingForm      Encoding = "form"
	EncodingMultipart Encoding = "multipart"
)

// payload is an encoded request body ready to be replayed on every attempt
type payload struct {
	body        []byte
	contentType string
	encoding    Encoding
}

// encodeForm turns params into a urlencoded body. A nil map yields an empty body.
func encodeForm(params map[string]string) payload {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return payload{
		body:        []byte(values.Encode()),
		contentType: FormContentType,
		encoding:    EncodingForm,
	}
}

// encodeMultipart writes content as the first part, named ContentField and
// filed under params[SliceIDKey], followed by one text part per parameter.
func encodeMultipart(params map[string]string, content []byte) (payload, error) {
	sliceID, ok := params[SliceIDKey]
	if !ok || sliceID == "" {
		return payload{}, NewValidationError("multipart request requires a slice id", SliceIDKey)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreatePart(partHeader(ContentField, sliceID, binaryPartContentType))
	if err != nil {
		return payload{}, NewValidationError("failed to encode multipart content: "+err.Error(), ContentField)
	}
	if _, err := part.Write(content); err != nil {
		return payload{}, NewValidationError("failed to encode multipart content: "+err.Error(), ContentField)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		part, err := w.CreatePart(partHeader(k, "", textPartContentType))
		if err != nil {
			return payload{}, NewValidationError("failed to encode multipart field: "+err.Error(), k)
		}
		if _, err := part.Write([]byte(params[k])); err != nil {
			return payload{}, NewValidationError("failed to encode multipart field: "+err.Error(), k)
		}
	}

	if err := w.Close(); err != nil {
		return payload{}, NewValidationError("failed to finish multipart body: "+err.Error(), "")
	}

	return payload{
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
		encoding:    EncodingMultipart,
	}, nil
}

func partHeader(name, filename, contentType string) textproto.MIMEHeader {
	disposition := map[string]string{"name": name}
	if filename != "" {
		disposition["filename"] = filename
	}

	h := make(textproto.MIMEHeader, 2)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", disposition))
	h.Set("Content-Type", contentType)
	return h
}
