package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// Image is a product photo to upload.
type Image struct {
	Filename    string
	ContentType string
	Data        io.Reader
	// Size is the byte length when known, 0 otherwise.
	Size int64
}

// ImageFromFile reads an image from disk, guessing its type from the extension.
func ImageFromFile(path string) (*Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fn := filepath.Base(path)
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fn)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Image{Filename: fn, ContentType: ct, Data: bytes.NewReader(b), Size: int64(len(b))}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody builds a form with an optional "product" JSON part and an
// optional "image" file part.
func multipartBody(product any, img *Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if product != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="product"`)
		h.Set("Content-Type", "application/json")
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if err := json.NewEncoder(pw).Encode(product); err != nil {
			return nil, "", err
		}
	}

	if img != nil {
		if img.Data == nil {
			return nil, "", fmt.Errorf("image %q has no data", img.Filename)
		}
		ct := img.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(img.Filename)))
		h.Set("Content-Type", ct)
		iw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(iw, img.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
