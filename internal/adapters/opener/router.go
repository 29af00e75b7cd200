package opener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"
)

// UploadsPrefix is the key prefix under which uploads are stored, one
// folder per collection.
const UploadsPrefix = "imports/"

// CollectionPrefix is the folder holding uploads for one collection.
func CollectionPrefix(coll models.Collection) string {
	return UploadsPrefix + string(coll) + "/"
}

// UploadKey is the object key an uploaded export is stored under.
func UploadKey(coll models.Collection, filename string, at time.Time) string {
	return fmt.Sprintf("%s%d-%s", CollectionPrefix(coll), at.UnixNano(), path.Base(filename))
}

// SourceRouter resolves an ImportFile to the opener that can read it:
// http(s) URLs (Google Sheets edit links become xlsx exports), s3:// URLs
// and object keys in the default bucket. A bare file name is looked up in
// the collection's upload folder.
type SourceRouter struct {
	HTTP *HTTPOpener
	S3   *S3Opener

	DefaultBucket string
}

var _ ports.FileOpener = (*SourceRouter)(nil)

func NewSourceRouter(httpOp *HTTPOpener, s3Op *S3Opener, defaultBucket string) *SourceRouter {
	return &SourceRouter{
		HTTP:          httpOp,
		S3:            s3Op,
		DefaultBucket: defaultBucket,
	}
}

func (r *SourceRouter) Open(ctx context.Context, f ports.ImportFile) (io.ReadCloser, ports.FileInfo, error) {
	coll, ok := models.ParseCollection(string(f.Collection))
	if !ok {
		return nil, ports.FileInfo{}, fmt.Errorf("unknown collection %q", f.Collection)
	}
	fp := strings.TrimSpace(f.Path)
	if fp == "" {
		return nil, ports.FileInfo{}, errors.New("empty file path")
	}

	var (
		rc   io.ReadCloser
		info ports.FileInfo
		err  error
	)
	switch {
	case strings.HasPrefix(fp, "http://") || strings.HasPrefix(fp, "https://"):
		if r.HTTP == nil {
			return nil, ports.FileInfo{}, errors.New("http opener not configured")
		}
		rc, info, err = r.HTTP.Open(ctx, sheetsExportURL(fp))

	case strings.HasPrefix(fp, "s3://"):
		if r.S3 == nil {
			return nil, ports.FileInfo{}, errors.New("s3 opener not configured")
		}
		bkt, key, perr := parseS3URL(fp)
		if perr != nil {
			return nil, ports.FileInfo{}, perr
		}
		if err := checkUploadFolder(coll, key); err != nil {
			return nil, ports.FileInfo{}, err
		}
		rc, info, err = r.S3.Open(ctx, bkt, key)

	default:
		if r.S3 == nil || r.DefaultBucket == "" {
			return nil, ports.FileInfo{}, errors.New("missing bucket: pass s3://bucket/key or https url")
		}
		key := resolveKey(coll, fp)
		if err := checkUploadFolder(coll, key); err != nil {
			return nil, ports.FileInfo{}, err
		}
		rc, info, err = r.S3.Open(ctx, r.DefaultBucket, key)
	}
	if err != nil {
		return nil, ports.FileInfo{}, err
	}
	info.Collection = coll
	return rc, info, nil
}

// resolveKey turns a bare file name into a key in the collection's
// upload folder. Keys with a folder are used as given.
func resolveKey(coll models.Collection, p string) string {
	p = strings.TrimPrefix(p, "/")
	if !strings.Contains(p, "/") {
		return CollectionPrefix(coll) + p
	}
	return p
}

// checkUploadFolder refuses a key uploaded for the other collection, so
// a transactions export is never read as rentals.
func checkUploadFolder(coll models.Collection, key string) error {
	rest, ok := strings.CutPrefix(key, UploadsPrefix)
	if !ok {
		return nil
	}
	folder, _, found := strings.Cut(rest, "/")
	if !found {
		return nil
	}
	if other, known := models.ParseCollection(folder); known && other != coll {
		return fmt.Errorf("%s was uploaded for %s, not %s", key, other, coll)
	}
	return nil
}

var sheetsEditURL = regexp.MustCompile(`^https://docs\.google\.com/spreadsheets/d/([A-Za-z0-9_-]+)`)

// sheetsExportURL rewrites a Google Sheets link to its xlsx export.
func sheetsExportURL(raw string) string {
	m := sheetsEditURL.FindStringSubmatch(raw)
	if m == nil || strings.Contains(raw, "/export") {
		return raw
	}
	return "https://docs.google.com/spreadsheets/d/" + m[1] + "/export?format=xlsx"
}

func parseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", errors.New("scheme must be s3")
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	key = path.Clean(key)
	if bucket == "" || key == "" || key == "." || key == "/" {
		return "", "", errors.New("empty bucket or key")
	}
	return bucket, key, nil
}
