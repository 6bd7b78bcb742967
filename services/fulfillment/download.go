package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"storefront/services/credentials"
)

// ErrFileUnavailable means a valid credential points at a file the blob store cannot
// serve. It is an operator problem, never reported as an expired link.
var ErrFileUnavailable = errors.New("product file unavailable")

// Download is an open product file ready to stream.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// OpenDownload redeems rawID and opens the product file it grants. Unknown, expired and
// malformed ids all return credentials.ErrNotFound. The caller closes Body.
func (s *Service) OpenDownload(ctx context.Context, rawID string) (Download, error) {
	id, err := credentials.ParseID(rawID)
	if err != nil {
		return Download{}, err
	}

	grant, err := s.credentials.Redeem(ctx, id, s.now())
	if err != nil {
		return Download{}, err
	}

	body, obj, err := s.files.Open(ctx, grant.FilePath)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("product_id", grant.ProductID.String()).
			Str("file_path", grant.FilePath).
			Msg("product file unavailable")
		return Download{}, fmt.Errorf("%w: %s: %v", ErrFileUnavailable, grant.FilePath, err)
	}

	return Download{
		Filename:    downloadFilename(grant.ProductName, grant.FilePath),
		ContentType: obj.ContentType,
		Size:        obj.Size,
		Body:        body,
	}, nil
}

// downloadFilename names the file after the product, keeping the stored file's extension.
func downloadFilename(productName, filePath string) string {
	name := strings.TrimSpace(productName)
	if name == "" {
		name = strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
	}
	return name + path.Ext(filePath)
}
