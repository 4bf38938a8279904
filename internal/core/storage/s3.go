// Package storage issues time-limited presigned PUT URLs so clients upload
// profile pictures straight to the bucket; the API never proxies file bytes.
package storage

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Opts struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type Client struct {
	mc     *minio.Client
	bucket string
}

func New(o Opts) (*Client, error) {
	mc, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
		Region: o.Region,
	})
	if err != nil {
		return nil, err
	}
	return &Client{mc: mc, bucket: o.Bucket}, nil
}

// ObjectKey places uploads under a common prefix, keyed by the bare file
// name. Base strips any client-supplied directory part so the key cannot
// escape the prefix.
func ObjectKey(fileName string) string { return path.Join("uploads", path.Base(fileName)) }

// PresignUpload returns a PUT URL valid for expiry; the signature pins the
// declared content type.
func (c *Client) PresignUpload(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	hdr := http.Header{}
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	u, err := c.mc.PresignHeader(ctx, http.MethodPut, c.bucket, key, expiry, url.Values{}, hdr)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
