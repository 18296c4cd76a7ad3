package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncw/swift/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ContainerInfo describes a container.
type ContainerInfo struct {
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Count    int64             `json:"count,omitempty"`
	Size     int64             `json:"size,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListContainers returns the containers visible to the driver. When the
// client is bound to a container, it is the only one visible.
func (c *Client) ListContainers(ctx context.Context, includeProperties bool) ([]ContainerInfo, error) {
	if c.container != "" {
		if !includeProperties {
			return []ContainerInfo{{Name: c.container, Path: c.container}}, nil
		}
		info, err := c.GetContainerProperties(ctx, c.container)
		if err != nil {
			return nil, err
		}
		return []ContainerInfo{*info}, nil
	}

	var out []ContainerInfo
	if c.getCached(containersCacheKey, &out) {
		return out, nil
	}
	containers, err := c.conn.ContainersAll(ctx, nil)
	if err != nil {
		return nil, wrapErr("Failed to list containers: ", err)
	}
	out = make([]ContainerInfo, 0, len(containers))
	for _, container := range containers {
		info := ContainerInfo{Name: container.Name, Path: container.Name}
		if includeProperties {
			info.Count = container.Count
			info.Size = container.Bytes
		}
		out = append(out, info)
	}
	if includeProperties {
		return out, nil
	}
	c.addCached(containersCacheKey, out)
	return out, nil
}

// GetContainerProperties returns the size and metadata of a container.
func (c *Client) GetContainerProperties(ctx context.Context, name string) (*ContainerInfo, error) {
	var info ContainerInfo
	if c.getCached(containerCacheKey(name), &info) {
		return &info, nil
	}
	container, headers, err := c.conn.Container(ctx, name)
	if errors.Is(err, swift.ContainerNotFound) {
		return nil, wrapErr("Failed to find container: ", err)
	}
	if err != nil {
		return nil, wrapErr("Failed to get container: ", err)
	}
	info = ContainerInfo{
		Name:     name,
		Path:     name,
		Count:    container.Count,
		Size:     container.Bytes,
		Metadata: headers.ContainerMetadata(),
	}
	c.addCached(containerCacheKey(name), info)
	return &info, nil
}

// ContainerExists returns true if the container exists. An error is returned
// only when the existence can't be determined.
func (c *Client) ContainerExists(ctx context.Context, name string) (bool, error) {
	_, _, err := c.conn.Container(ctx, name)
	if errors.Is(err, swift.ContainerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("Failed to list containers: ", err)
	}
	return true, nil
}

// CreateContainer creates a container, with optional metadata.
func (c *Client) CreateContainer(ctx context.Context, name string, metadata map[string]string) (*ContainerInfo, error) {
	if name == "" {
		return nil, errNoContainerName
	}
	var headers swift.Headers
	if len(metadata) > 0 {
		headers = swift.Metadata(metadata).ContainerHeaders()
	}
	if err := c.conn.ContainerCreate(ctx, name, headers); err != nil {
		return nil, wrapErr(fmt.Sprintf("Failed to create container '%s': ", name), err)
	}
	c.evict(containersCacheKey, containerCacheKey(name))
	return &ContainerInfo{Name: name, Path: name}, nil
}

// UpdateContainerProperties sets the metadata of a container.
func (c *Client) UpdateContainerProperties(ctx context.Context, name string, metadata map[string]string) error {
	headers := swift.Metadata(metadata).ContainerHeaders()
	if err := c.conn.ContainerUpdate(ctx, name, headers); err != nil {
		return wrapErr(fmt.Sprintf("Failed to update container '%s': ", name), err)
	}
	c.evict(containerCacheKey(name))
	return nil
}

// DeleteContainer deletes a container. Swift refuses to delete a container
// that is not empty: with force, the objects are deleted first.
func (c *Client) DeleteContainer(ctx context.Context, name string, force bool) error {
	prefix := fmt.Sprintf("Failed to delete container '%s': ", name)
	if force {
		err := c.emptyContainer(ctx, name)
		c.invalidateBlobs(name)
		if err != nil {
			return wrapErr(prefix, err)
		}
	}
	if err := c.conn.ContainerDelete(ctx, name); err != nil {
		return wrapErr(prefix, err)
	}
	c.evict(containersCacheKey, containerCacheKey(name))
	c.invalidateBlobs(name)
	return nil
}

func (c *Client) emptyContainer(ctx context.Context, name string) error {
	objs, err := c.conn.ObjectNamesAll(ctx, name, nil)
	if err != nil {
		return err
	}
	if len(objs) == 0 {
		return nil
	}

	if _, err = c.conn.BulkDelete(ctx, name, objs); err == nil {
		return nil
	}
	logrus.WithField("container", name).
		Debugf("Bulk delete failed (%s), deleting %d objects one by one", err, len(objs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for _, obj := range objs {
		obj := obj
		g.Go(func() error {
			err := c.conn.ObjectDelete(ctx, name, obj)
			if errors.Is(err, swift.ObjectNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
