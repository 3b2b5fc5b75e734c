package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/reelfix/internal/metrics"
	"github.com/backmassage/reelfix/internal/workspace"
)

const (
	fileField     = "file"
	maxFieldBytes = 4 << 10
)

// upload is a materialized request: the input file inside the request's
// workspace plus the plain form fields.
type upload struct {
	Path   string
	Fields url.Values
}

// readUpload streams a multipart body into ws. Form fields may come before
// or after the file part. Exactly one file part is accepted.
func readUpload(r *http.Request, ws *workspace.Workspace) (*upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, badRequest("expecting multipart/form-data: " + err.Error())
	}

	up := &upload{Fields: url.Values{}}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}

		name := part.FormName()
		if name != fileField {
			data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			_ = part.Close()
			if err != nil {
				return nil, fmt.Errorf("read field %s: %w", name, err)
			}
			up.Fields.Add(name, strings.TrimSpace(string(data)))
			continue
		}

		if up.Path != "" {
			_ = part.Close()
			return nil, badRequest("only one file per request")
		}
		counter := &countingReader{r: part}
		up.Path, err = ws.Materialize(part.FileName(), counter)
		metrics.UploadBytesTotal.Add(float64(counter.n))
		_ = part.Close()
		if err != nil {
			return nil, err
		}
	}

	if up.Path == "" {
		return nil, badRequest("missing file field \"" + fileField + "\"")
	}
	return up, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// serveFile sends path as a download named after its base name.
func serveFile(w http.ResponseWriter, r *http.Request, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open result: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat result: %w", err)
	}
	name := filepath.Base(path)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, fi.ModTime(), f)
	return nil
}
