// Package netx talks HTTP to presigned object-store URLs.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrMissingETag is returned when a part upload succeeds without an ETag header.
var ErrMissingETag = errors.New("upload response has no ETag")

// partBackoff builds the retry policy for one part upload.
var partBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
}

// PutPart uploads body to a presigned part URL and returns the ETag the
// store assigned. Transport errors and 5xx responses are retried.
func PutPart(ctx context.Context, client *http.Client, url string, body []byte) (string, error) {
	var etag string

	err := retry.Do(ctx, partBackoff(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.ContentLength = int64(len(body))

		resp, err := client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
			if resp.StatusCode >= http.StatusInternalServerError {
				return retry.RetryableError(err)
			}
			return err
		}

		etag = resp.Header.Get("ETag")
		if etag == "" {
			return ErrMissingETag
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return etag, nil
}

// Download streams the object behind a presigned GET URL into w and returns
// the number of bytes written.
func Download(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	return io.Copy(w, resp.Body)
}
