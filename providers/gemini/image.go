package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/leofalp/gemkit/internal/utils"
)

// maxInlineImageBytes is the inline data limit of generateContent.
const maxInlineImageBytes = 20 << 20

var imageMimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
}

// imageMimeType maps a file extension (with or without the dot, any case)
// to its MIME type.
func imageMimeType(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	mime, ok := imageMimeTypes[ext]
	if !ok {
		return "", configErrorf("unsupported image extension %q (allowed: jpg, jpeg, png, webp, heic, heif)", ext)
	}
	return mime, nil
}

// AddImageByURL downloads an image and appends it as a new user message.
// The extension of the URL path decides the MIME type; the query string is
// ignored.
func (b *RequestBuilder) AddImageByURL(ctx context.Context, imageURL string) *RequestBuilder {
	if b.err != nil {
		return b
	}

	u, err := url.Parse(imageURL)
	if err != nil {
		return b.setErr(configErrorf("invalid image url %q: %v", imageURL, err))
	}
	mime, err := imageMimeType(path.Ext(u.Path))
	if err != nil {
		return b.setErr(err)
	}

	data, err := fetchImage(ctx, b.httpClient(), u.String())
	if err != nil {
		return b.setErr(fmt.Errorf("%w: %s: %w", ErrRetrieval, imageURL, err))
	}
	return b.addImage(mime, data)
}

// AddImageByLocalFile reads an image from disk and appends it as a new user
// message.
func (b *RequestBuilder) AddImageByLocalFile(filePath string) *RequestBuilder {
	if b.err != nil {
		return b
	}

	mime, err := imageMimeType(filepath.Ext(filePath))
	if err != nil {
		return b.setErr(err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return b.setErr(fmt.Errorf("%w: %w", ErrRetrieval, err))
	}
	return b.addImage(mime, data)
}

func (b *RequestBuilder) addImage(mime string, data []byte) *RequestBuilder {
	b.req.messages = append(b.req.messages, Message{
		Role: RoleUser,
		Parts: []Part{{InlineData: &InlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(data),
		}}},
	})
	return b
}

func (b *RequestBuilder) httpClient() *http.Client {
	if b.client != nil {
		return b.client.httpClient
	}
	return http.DefaultClient
}

func fetchImage(ctx context.Context, httpClient *http.Client, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInlineImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInlineImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxInlineImageBytes)
	}
	return data, nil
}
