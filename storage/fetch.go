package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/ncw/swift/v2"
)

// BlobHandle is a snapshot of the metadata of a blob, taken before reading it.
type BlobHandle struct {
	Container     string
	Name          string
	ContentType   string
	ContentLength int64
	LastModified  time.Time
}

// ResolveContainer checks that the container exists.
func (c *Client) ResolveContainer(ctx context.Context, container string) error {
	_, _, err := c.conn.Container(ctx, container)
	if err != nil {
		return wrapErr(fmt.Sprintf("No container named '%s': ", container), err)
	}
	return nil
}

// ResolveBlob returns a handle on the blob. If the blob does not exist, the
// error has a 404 status code.
func (c *Client) ResolveBlob(ctx context.Context, container, name string) (*BlobHandle, error) {
	obj, headers, err := c.conn.Object(ctx, container, name)
	if err != nil {
		return nil, wrapErr("", err)
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = headers["Content-Type"]
	}
	return &BlobHandle{
		Container:     container,
		Name:          name,
		ContentType:   contentType,
		ContentLength: obj.Bytes,
		LastModified:  obj.LastModified,
	}, nil
}

// RangedFetch reads the bytes from start to end (inclusive) of a blob. The
// object is addressed by its container and name, and the swift connection
// builds its location from the storage URL of the account. The server can
// return less bytes than asked, and no bytes at all if start is past the end
// of the blob.
func (c *Client) RangedFetch(ctx context.Context, blob *BlobHandle, start, end int64) ([]byte, error) {
	if start < 0 || end < start {
		return nil, errshttp.NewError(http.StatusRequestedRangeNotSatisfiable,
			"Invalid range %d-%d", start, end)
	}
	headers := swift.Headers{
		"Range": fmt.Sprintf("bytes=%d-%d", start, end),
	}
	file, _, err := c.conn.ObjectOpen(ctx, blob.Container, blob.Name, false, headers)
	var swiftErr *swift.Error
	if errors.As(err, &swiftErr) && swiftErr.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("", err)
	}

	data, err := io.ReadAll(file)
	if errc := file.Close(); errc != nil && err == nil {
		err = errc
	}
	if err != nil {
		return nil, wrapErr("", err)
	}
	return data, nil
}
