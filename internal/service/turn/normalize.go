package turn

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dexterslab/plural-backend/internal/types"
)

// ImageLoadFailedText replaces an image block whose fetch failed.
const ImageLoadFailedText = "[Image could not be loaded]"

const defaultImageFetchTimeout = 15 * time.Second

// maxImageBytes bounds how much image data a single fetch may pull in.
const maxImageBytes = 8 << 20

// Normalizer converts heterogeneous message content into a canonical
// ordered list of content blocks. It never fails: unrecoverable items
// degrade to placeholder text blocks.
type Normalizer struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewNormalizer creates a Normalizer whose image fetches are bounded by the
// given timeout.
func NewNormalizer(fetchTimeout time.Duration, logger *logrus.Logger) *Normalizer {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultImageFetchTimeout
	}
	return &Normalizer{
		// http.Client follows redirects by default.
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

// Normalize converts message content into ordered content blocks. Plain
// text yields a single text block. Mixed content yields one block per part,
// order preserved; image fetches run in parallel since they are independent.
func (n *Normalizer) Normalize(ctx context.Context, content types.MessageContent) []types.ContentBlock {
	if !content.IsMixed() {
		return []types.ContentBlock{types.TextBlock(content.Text)}
	}

	blocks := make([]types.ContentBlock, len(content.Parts))
	var wg sync.WaitGroup

	for i, part := range content.Parts {
		switch part.Type {
		case types.PartTypeText:
			// Empty text items are compacted away below.
			blocks[i] = types.TextBlock(part.Text)
		case types.PartTypeImageURL:
			if part.ImageURL == nil || part.ImageURL.URL == "" {
				blocks[i] = types.TextBlock("")
				continue
			}
			wg.Add(1)
			go func(i int, imageURL string) {
				defer wg.Done()
				blocks[i] = n.fetchImageBlock(ctx, imageURL)
			}(i, part.ImageURL.URL)
		default:
			// Unknown part shape: stringify rather than drop.
			blocks[i] = types.TextBlock(stringifyPart(part))
		}
	}
	wg.Wait()

	// Parts that produced no content are compacted away.
	result := blocks[:0]
	for _, block := range blocks {
		if block.Kind == types.BlockText && block.Text == "" {
			continue
		}
		result = append(result, block)
	}
	return result
}

// fetchImageBlock fetches remote image bytes and returns an inline image
// block, or the placeholder text block on any failure. No retries: a
// transient failure degrades this turn only.
func (n *Normalizer) fetchImageBlock(ctx context.Context, imageURL string) types.ContentBlock {
	n.logger.WithField("url", imageURL).Info("fetching image data")

	data, mimeType, err := n.fetchImage(ctx, imageURL)
	if err != nil {
		n.logger.WithError(err).WithField("url", imageURL).Error("failed to fetch image data")
		return types.TextBlock(ImageLoadFailedText)
	}
	return types.ImageBlock(mimeType, data)
}

func (n *Normalizer) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}

	mimeType := guessImageMIME(imageURL, resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("invalid mime type %q", mimeType)
	}
	return data, mimeType, nil
}

// guessImageMIME resolves the MIME type from the URL extension first,
// falling back to the response's declared content type.
func guessImageMIME(imageURL, contentType string) string {
	if u, err := url.Parse(imageURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			if byExt := mime.TypeByExtension(ext); byExt != "" {
				return byExt
			}
		}
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return ""
}

func stringifyPart(part types.ContentPart) string {
	if len(part.Raw) > 0 {
		return string(part.Raw)
	}
	return fmt.Sprintf("%+v", part)
}
