package cloudinary

import (
	"context"
	"io"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Client stores attachment blobs and returns retrievable URLs. The messaging
// core never interprets file bytes; it only records what this returns.
type Client interface {
	UploadFile(ctx context.Context, file io.Reader, folder, publicID string) (url string, err error)
}

type clientImpl struct {
	cld *cld.Cloudinary
}

func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	c, err := cld.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &clientImpl{cld: c}, nil
}

// UploadFile stores the blob with resource type auto-detection (images,
// video, raw documents) and returns the secure delivery URL.
func (c *clientImpl) UploadFile(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	result, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
	})
	if err != nil {
		return "", err
	}
	return result.SecureURL, nil
}
