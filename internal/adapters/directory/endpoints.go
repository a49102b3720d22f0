package directory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// list endpoints, each returns a JSON array
const (
	pathFeeds          = "/feeds"
	pathSharingSystems = "/sharing-systems"
	pathRoutes         = "/routes"
)

// bodyLimit caps a directory listing, routes are the largest
const bodyLimit = 64 << 20

// ListFeeds fetches all feeds; notModified is true when etag still matches
func (c *Client) ListFeeds(ctx context.Context, etag string) (feeds []domain.Feed, etagOut string, notModified bool, err error) {
	return getList[domain.Feed](ctx, c, pathFeeds, etag)
}

// ListSharingSystems fetches all sharing systems
func (c *Client) ListSharingSystems(ctx context.Context, etag string) ([]domain.SharingSystem, string, bool, error) {
	return getList[domain.SharingSystem](ctx, c, pathSharingSystems, etag)
}

// ListRoutes fetches all routes
func (c *Client) ListRoutes(ctx context.Context, etag string) ([]domain.Route, string, bool, error) {
	return getList[domain.Route](ctx, c, pathRoutes, etag)
}

func getList[T any](ctx context.Context, c *Client, path, etag string) ([]T, string, bool, error) {
	resp, err := c.Do(ctx, path, etag)
	if err != nil {
		return nil, "", false, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("directory close body failed")
		}
	}()

	if resp.StatusCode == http.StatusNotModified {
		return nil, resp.Header.Get("ETag"), true, nil
	}

	var out []T
	if err := json.NewDecoder(io.LimitReader(resp.Body, bodyLimit)).Decode(&out); err != nil {
		return nil, "", false, perr.Wrapf(err, perr.ErrorCodeUpstream, "decode directory %s", path)
	}
	return out, resp.Header.Get("ETag"), false, nil
}
