package engine

import (
	"io"
	"net/http"

	"github.com/tanq16/hiruko/internal/control"
	"github.com/tanq16/hiruko/internal/retry"
	"github.com/tanq16/hiruko/internal/utils"
)

// Stream downloads the whole resource with a single plain GET. It is the
// fallback for servers that reject range requests or hide the content length.
// A failed attempt restarts from byte zero since no partial range can be
// trusted without range support.
func Stream(t *Transfer) error {
	log := utils.GetLogger("engine")
	err := retry.Run(t.Policy, t.Abort.Aborted, func() error {
		return streamOnce(t)
	})
	if err != nil {
		return err
	}
	log.Debug().Str("op", "stream").Int64("bytes", t.Received()).Msg("stream transfer complete")
	if len(t.Segments) > 0 {
		t.markComplete(0)
	}
	return nil
}

func streamOnce(t *Transfer) error {
	req, err := http.NewRequest(http.MethodGet, t.URL, nil)
	if err != nil {
		return retry.ConnectionErr(err)
	}
	for key, value := range t.Headers {
		req.Header.Set(key, value)
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return retry.ConnectionErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return retry.StatusErr(resp.StatusCode)
	}
	if _, err := t.Storage.Seek(0, io.SeekStart); err != nil {
		t.Abort.Abort()
		return retry.StorageErr(err)
	}
	t.received.Store(0)
	buffer := make([]byte, utils.DefaultBufferSize)
	var written int64
	for {
		if t.Abort.Aborted() {
			return control.ErrAborted
		}
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := t.Storage.Write(buffer[:n]); writeErr != nil {
				t.Abort.Abort()
				return retry.StorageErr(writeErr)
			}
			written += int64(n)
			t.received.Store(written)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return retry.ConnectionErr(readErr)
		}
	}
	// A chunked response hides its length, so fall back to the probed
	// size when the server knows one.
	expected := resp.ContentLength
	if expected < 0 {
		expected = t.TotalSize
	}
	if expected >= 0 && written != expected {
		return retry.PartialErr(expected, written)
	}
	return nil
}
