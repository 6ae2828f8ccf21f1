// Package storage is the client of the edge storage HTTP API.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"runtime"

	"github.com/imroc/req/v3"
	"github.com/openmined/cdnpublish/internal/config"
	"github.com/openmined/cdnpublish/internal/errs"
	"github.com/openmined/cdnpublish/internal/remotepath"
	"github.com/openmined/cdnpublish/internal/version"
)

const (
	HeaderAccessKey   = "AccessKey"
	HeaderChecksum    = "Checksum"
	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"

	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
)

var UserAgent = fmt.Sprintf("%s/%s (%s; %s)", version.AppName, version.Version, runtime.GOOS, runtime.GOARCH)

// Client talks to a single storage zone.
type Client struct {
	client  *req.Client
	zoneURL string
}

// New creates a Client for the zone described by cfg.
func New(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := req.C().
		SetUserAgent(UserAgent).
		SetCommonHeader(HeaderAccessKey, cfg.AccessKey).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &Client{
		client:  client,
		zoneURL: cfg.ZoneURL(),
	}, nil
}

// Get downloads the object at path into the local file output, truncating it.
func (c *Client) Get(ctx context.Context, path remotepath.Path, output string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(HeaderAccept, "*/*").
		DisableAutoReadResponse().
		Get(c.objectURL(path.Escaped()))
	if err := handleResponse(resp, err, "storage get "+path.Abs()); err != nil {
		return err
	}
	defer resp.Body.Close()

	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Wrap(errs.KindIO, err, "open %s", output)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return errs.Wrap(errs.KindIO, err, "write %s", output)
	}
	return file.Close()
}

// List returns the entries of dir. An absent directory and an empty one both yield no entries.
func (c *Client) List(ctx context.Context, dir remotepath.Dir) ([]Item, error) {
	op := "storage list " + dir.String()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(HeaderAccept, "*/*").
		Get(c.objectURL(dir.Escaped()))
	if err := handleResponse(resp, err, op); err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.GetContentType())
	if mediaType != ContentTypeJSON {
		return nil, errs.New(errs.KindParse, "%s: %s header is not '%s'", op, HeaderContentType, ContentTypeJSON)
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, errs.Wrap(errs.KindHTTPClient, err, "%s: read response", op)
	}

	var items []Item
	if err := jsonUnmarshal(body, &items); err != nil {
		return nil, errs.Wrap(errs.KindSerialization, err, "%s: decode listing", op)
	}
	return items, nil
}

// Upload streams body to path. A non-empty checksum is sent so that the service can reject corrupted content.
func (c *Client) Upload(ctx context.Context, path remotepath.Path, body io.Reader, checksum string) error {
	r := c.client.R().
		SetContext(ctx).
		SetHeader(HeaderAccept, ContentTypeJSON).
		SetHeader(HeaderContentType, ContentTypeBinary).
		SetBody(body)
	if checksum != "" {
		r.SetHeader(HeaderChecksum, checksum)
	}

	resp, err := r.Put(c.objectURL(path.Escaped()))
	return handleResponse(resp, err, "storage upload "+path.Abs())
}

// UploadFile opens the local file and streams it to path.
func (c *Client) UploadFile(ctx context.Context, path remotepath.Path, localPath string, checksum string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return errs.Wrap(errs.KindIO, err, "open %s", localPath)
	}
	defer file.Close()

	slog.Debug("storage upload", "path", path.Abs(), "file", localPath, "checksum", checksum != "")
	return c.Upload(ctx, path, file, checksum)
}

func (c *Client) objectURL(escaped string) string {
	return c.zoneURL + "/" + escaped
}
