package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/h2non/filetype"
	"github.com/ncw/swift/v2"
	"github.com/pkg/xattr"
	"github.com/sirupsen/logrus"
)

const (
	defaultContentType = "application/octet-stream"

	// xattrMimeType is the extended attribute where the content type of a
	// local file is kept between a download and an upload.
	xattrMimeType = "user.mime_type"

	// sniffLen is the number of bytes needed by filetype to match a type.
	sniffLen = 262
)

// BlobInfo describes a blob, or a sub-directory in a listing.
type BlobInfo struct {
	Name          string `json:"name"`
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
	LastModified  string `json:"last_modified"`
	SubDir        bool   `json:"-"`
}

// Resource is an entry of a folder.
type Resource struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
	LastModified  string `json:"last_modified,omitempty"`
}

// Folder is the content of a folder in a container.
type Folder struct {
	Name    string     `json:"name"`
	Path    string     `json:"path"`
	Folders []Resource `json:"folder,omitempty"`
	Files   []Resource `json:"file,omitempty"`
}

// ListBlobs lists the blobs of a container whose name starts with prefix. With
// a delimiter, the blobs in sub-directories are regrouped as a single entry
// for the sub-directory.
func (c *Client) ListBlobs(ctx context.Context, container, prefix, delimiter string) ([]BlobInfo, error) {
	key := c.blobsCacheKey(container, prefix, delimiter)
	var out []BlobInfo
	if c.getCached(key, &out) {
		return out, nil
	}

	opts := &swift.ObjectsOpts{Prefix: prefix}
	if delimiter != "" {
		opts.Delimiter = []rune(delimiter)[0]
	}
	objects, err := c.conn.ObjectsAll(ctx, container, opts)
	if err != nil {
		return nil, wrapErr("Failed to list blobs: ", err)
	}

	out = make([]BlobInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.SubDir != "" || obj.PseudoDirectory {
			name := obj.SubDir
			if name == "" {
				name = obj.Name
			}
			out = append(out, BlobInfo{Name: name, SubDir: true})
			continue
		}
		if obj.Name == "" || obj.Name == prefix {
			continue
		}
		out = append(out, BlobInfo{
			Name:          obj.Name,
			ContentType:   obj.ContentType,
			ContentLength: obj.Bytes,
			LastModified:  obj.LastModified.UTC().Format(http.TimeFormat),
		})
	}
	c.addCached(key, out)
	return out, nil
}

// GetFolder returns the files and sub-folders of a folder. An empty path is
// the root of the container. With fullTree, the whole hierarchy under the
// folder is returned in a flat list.
func (c *Client) GetFolder(ctx context.Context, container, path string, includeFiles, includeFolders, fullTree bool) (*Folder, error) {
	prefix := strings.TrimPrefix(path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	delimiter := "/"
	if fullTree {
		delimiter = ""
	}
	blobs, err := c.ListBlobs(ctx, container, prefix, delimiter)
	if err != nil {
		return nil, err
	}

	folder := &Folder{
		Name: folderName(container, prefix),
		Path: prefix,
	}
	for _, blob := range blobs {
		isDir := blob.SubDir || strings.HasSuffix(blob.Name, "/")
		if isDir {
			if includeFolders {
				folder.Folders = append(folder.Folders, Resource{
					Name: folderName(container, blob.Name),
					Path: blob.Name,
				})
			}
			continue
		}
		if includeFiles {
			folder.Files = append(folder.Files, Resource{
				Name:          blob.Name[strings.LastIndex(blob.Name, "/")+1:],
				Path:          blob.Name,
				ContentType:   blob.ContentType,
				ContentLength: blob.ContentLength,
				LastModified:  blob.LastModified,
			})
		}
	}
	return folder, nil
}

func folderName(container, path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return container
	}
	return path[strings.LastIndex(path, "/")+1:]
}

// BlobExists returns true if the blob exists. Unlike a missing blob, an error
// while asking the server is returned, not reported as false.
func (c *Client) BlobExists(ctx context.Context, container, name string) (bool, error) {
	_, _, err := c.conn.Object(ctx, container, name)
	if errors.Is(err, swift.ObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("Failed to check blob: ", err)
	}
	return true, nil
}

// GetBlobProperties returns the properties of a blob.
func (c *Client) GetBlobProperties(ctx context.Context, container, name string) (*BlobInfo, error) {
	obj, _, err := c.conn.Object(ctx, container, name)
	if err != nil {
		return nil, wrapErr("Failed to list metadata: ", err)
	}
	return &BlobInfo{
		Name:          obj.Name,
		ContentType:   obj.ContentType,
		ContentLength: obj.Bytes,
		LastModified:  obj.LastModified.UTC().Format(http.TimeFormat),
	}, nil
}

// PutBlobData creates or replaces a blob with the given content. When the
// content type is empty, it is guessed from the content.
func (c *Client) PutBlobData(ctx context.Context, container, name string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = sniffContentType(data)
	}
	_, err := c.conn.ObjectPut(ctx, container, name, bytes.NewReader(data), false, "", contentType, nil)
	if err != nil {
		return wrapErr(fmt.Sprintf("Failed to create blob '%s': ", name), err)
	}
	c.evict(containerCacheKey(container))
	c.invalidateBlobs(container)
	return nil
}

// PutBlob creates or replaces a blob with the content read from r. When the
// content type is empty, it is guessed from the first bytes.
func (c *Client) PutBlob(ctx context.Context, container, name string, r io.Reader, contentType string) error {
	prefix := fmt.Sprintf("Failed to create blob '%s': ", name)
	if contentType == "" {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(r, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return wrapErr(prefix, err)
		}
		contentType = sniffContentType(head[:n])
		r = io.MultiReader(bytes.NewReader(head[:n]), r)
	}
	if _, err := c.conn.ObjectPut(ctx, container, name, r, false, "", contentType, nil); err != nil {
		return wrapErr(prefix, err)
	}
	c.evict(containerCacheKey(container))
	c.invalidateBlobs(container)
	return nil
}

// PutBlobFromFile creates or replaces a blob with the content of a local
// file. When the content type is empty, it is taken from the extended
// attributes of the file, or guessed from its content.
func (c *Client) PutBlobFromFile(ctx context.Context, container, name, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return wrapErr(fmt.Sprintf("Failed to create blob '%s': ", name), err)
	}
	defer f.Close()

	if contentType == "" {
		if attr, err := xattr.Get(localPath, xattrMimeType); err == nil && len(attr) > 0 {
			contentType = string(attr)
		}
	}
	return c.PutBlob(ctx, container, name, f, contentType)
}

// CopyBlob copies the blob srcName of srcContainer to name in container.
func (c *Client) CopyBlob(ctx context.Context, container, name, srcContainer, srcName string) error {
	prefix := fmt.Sprintf("Failed to copy blob '%s': ", name)
	for _, cont := range []string{srcContainer, container} {
		exists, err := c.ContainerExists(ctx, cont)
		if err != nil {
			return wrapErr(prefix, err)
		}
		if !exists {
			return errshttp.NewError(http.StatusNotFound, "%sNo container named '%s'", prefix, cont)
		}
	}
	if _, err := c.conn.ObjectCopy(ctx, srcContainer, srcName, container, name, nil); err != nil {
		return wrapErr(prefix, err)
	}
	c.evict(containerCacheKey(container))
	c.invalidateBlobs(container)
	return nil
}

// GetBlobAsFile downloads a blob to a local file. The content type of the
// blob is kept in an extended attribute of the file when the file system
// supports it.
func (c *Client) GetBlobAsFile(ctx context.Context, container, name, localPath string) error {
	prefix := fmt.Sprintf("Failed to get blob '%s': ", name)
	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return wrapErr(prefix, err)
	}
	headers, err := c.conn.ObjectGet(ctx, container, name, f, false, nil)
	if errc := f.Close(); errc != nil && err == nil {
		err = errc
	}
	if err != nil {
		_ = os.Remove(localPath)
		return wrapErr(prefix, err)
	}

	if contentType := headers["Content-Type"]; contentType != "" {
		if err := xattr.Set(localPath, xattrMimeType, []byte(contentType)); err != nil {
			logrus.WithField("path", localPath).Debugf("Cannot set the mime type: %s", err)
		}
	}
	return nil
}

// GetBlobData returns the content of a blob.
func (c *Client) GetBlobData(ctx context.Context, container, name string) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := c.conn.ObjectGet(ctx, container, name, buf, false, nil); err != nil {
		return nil, wrapErr(fmt.Sprintf("Failed to get blob '%s': ", name), err)
	}
	return buf.Bytes(), nil
}

// DeleteBlob deletes a blob. If the blob is not found, it's OK.
func (c *Client) DeleteBlob(ctx context.Context, container, name string) error {
	err := c.conn.ObjectDelete(ctx, container, name)
	if err != nil && !errors.Is(err, swift.ObjectNotFound) {
		return wrapErr(fmt.Sprintf("Failed to delete blob '%s': ", name), err)
	}
	c.evict(containerCacheKey(container))
	c.invalidateBlobs(container)
	return nil
}

func sniffContentType(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return defaultContentType
	}
	return kind.MIME.Value
}
