package document

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	errorslib "github.com/goliatone/go-errors"
)

// SetLogo stores a copy of data as the issuer logo. An empty content type is sniffed.
func (d *Document) SetLogo(data []byte, contentType string) {
	if len(data) == 0 {
		d.Issuer.Logo = nil
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	d.Issuer.Logo = &Image{
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
	}
}

// SetLogoDataURL decodes a data: URL (base64 or percent-encoded) into the issuer logo.
func (d *Document) SetLogoDataURL(raw string) error {
	data, contentType, err := ParseDataURL(raw)
	if err != nil {
		return err
	}
	d.SetLogo(data, contentType)
	return nil
}

// ClearLogo removes the issuer logo.
func (d *Document) ClearLogo() {
	d.Issuer.Logo = nil
}

// ParseDataURL returns the payload and media type of a data: URL.
func ParseDataURL(raw string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "data:")
	if !ok {
		return nil, "", invalidLogo("logo must be a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", invalidLogo("data URL has no payload")
	}

	params := strings.Split(header, ";")
	contentType := strings.TrimSpace(params[0])
	encoded := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			encoded = true
		}
	}

	if encoded {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", invalidLogo("data URL payload is not valid base64")
		}
		return data, contentType, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", invalidLogo("data URL payload is not valid")
	}
	return []byte(text), contentType, nil
}

func invalidLogo(msg string) error {
	return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode("validation")
}
