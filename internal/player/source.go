package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/glizzus/voicelink/internal/datalayer"
	"github.com/glizzus/voicelink/internal/opus"
)

const (
	blobPrefix = "blob:"
	loopPrefix = "loop:"
)

var (
	ErrEmptySource   = errors.New("source is empty")
	ErrNoBlobStorage = errors.New("blob storage is not configured")
)

// Opener turns a source string into frames. The closer releases whatever
// backs the frames and must be called once playback ends.
type Opener interface {
	Open(ctx context.Context, source string) (opus.Source, io.Closer, error)
}

// SourceOpener resolves blob, http and file sources.
type SourceOpener struct {
	Blobs  datalayer.BlobStorage
	Client *http.Client
	// Encode transcodes sources that are not already Opus.
	Encode func(ctx context.Context, r io.Reader) (io.ReadCloser, error)
}

func NewSourceOpener(blobs datalayer.BlobStorage) *SourceOpener {
	return &SourceOpener{
		Blobs:  blobs,
		Client: http.DefaultClient,
		Encode: opus.Encode,
	}
}

var _ Opener = (*SourceOpener)(nil)

func (o *SourceOpener) Open(ctx context.Context, source string) (opus.Source, io.Closer, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil, ErrEmptySource
	}

	if inner, ok := strings.CutPrefix(source, loopPrefix); ok {
		loop := opus.Loop(func() (opus.Source, error) {
			frames, closer, err := o.Open(ctx, inner)
			if err != nil {
				return nil, err
			}
			return closingSource{Source: frames, Closer: closer}, nil
		})
		return loop, loop, nil
	}

	raw, name, err := o.fetch(ctx, source)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".ogg", ".opus":
		return opus.NewOggReader(raw), raw, nil
	case ".frames", ".dca":
		return opus.NewFrameReader(raw), raw, nil
	}

	encoded, err := o.Encode(ctx, raw)
	if err != nil {
		raw.Close()
		return nil, nil, fmt.Errorf("failed to transcode %s: %w", source, err)
	}
	return opus.NewFrameReader(encoded), multiCloser{encoded, raw}, nil
}

// fetch opens the raw bytes of source and returns the name its extension
// is read from.
func (o *SourceOpener) fetch(ctx context.Context, source string) (io.ReadCloser, string, error) {
	if key, ok := strings.CutPrefix(source, blobPrefix); ok {
		if o.Blobs == nil {
			return nil, "", ErrNoBlobStorage
		}
		blob, err := o.Blobs.Get(ctx, key)
		if err != nil {
			return nil, "", err
		}
		return blob, key, nil
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		u, err := url.Parse(source)
		if err != nil {
			return nil, "", fmt.Errorf("invalid source url: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, "", err
		}
		client := o.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch %s: %w", source, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, "", fmt.Errorf("failed to fetch %s: status %s", source, resp.Status)
		}
		return resp.Body, u.Path, nil
	}

	file, err := os.Open(source)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", source, err)
	}
	return file, filepath.ToSlash(source), nil
}

type closingSource struct {
	opus.Source
	io.Closer
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
