package engine

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tanq16/hiruko/internal/control"
	"github.com/tanq16/hiruko/internal/retry"
	"github.com/tanq16/hiruko/internal/segment"
	"github.com/tanq16/hiruko/internal/utils"
)

// fetchSegment performs one attempt at downloading segment index. The response
// is validated against the requested range before the first byte reaches
// storage, so a server that ignores the Range header can never corrupt the
// file. Storage failures poison the whole transfer via the abort token since
// no retry can fix a bad disk.
func fetchSegment(t *Transfer, index int) error {
	if t.Abort.Aborted() {
		return control.ErrAborted
	}
	seg := t.Segments[index]
	req, err := http.NewRequest(http.MethodGet, t.URL, nil)
	if err != nil {
		return retry.ConnectionErr(err)
	}
	for key, value := range t.Headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Range", seg.RangeHeader())
	resp, err := t.Client.Do(req)
	if err != nil {
		return retry.ConnectionErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return retry.StatusErr(resp.StatusCode)
	}
	if err := checkContentRange(resp.Header.Get("Content-Range"), seg, t.TotalSize); err != nil {
		return err
	}

	buffer := make([]byte, utils.DefaultBufferSize)
	offset := seg.Start
	for {
		if t.Abort.Aborted() {
			return control.ErrAborted
		}
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := t.Storage.WriteAt(buffer[:n], offset); writeErr != nil {
				t.Abort.Abort()
				return retry.StorageErr(writeErr)
			}
			offset += int64(n)
			t.received.Add(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return retry.ConnectionErr(readErr)
		}
	}
	if got := offset - seg.Start; got != seg.Length() {
		return retry.PartialErr(seg.Length(), got)
	}
	return nil
}

// checkContentRange requires the server's Content-Range to match the requested
// segment exactly. The total is only compared when both sides know it.
func checkContentRange(value string, seg segment.Segment, totalSize int64) error {
	if value == "" {
		return retry.ProtocolErr(http.StatusPartialContent, "missing Content-Range header")
	}
	rest, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return retry.ProtocolErr(http.StatusPartialContent, fmt.Sprintf("malformed Content-Range %q", value))
	}
	rangePart, totalPart, ok := strings.Cut(rest, "/")
	if !ok {
		return retry.ProtocolErr(http.StatusPartialContent, fmt.Sprintf("malformed Content-Range %q", value))
	}
	firstPart, lastPart, ok := strings.Cut(rangePart, "-")
	if !ok {
		return retry.ProtocolErr(http.StatusPartialContent, fmt.Sprintf("malformed Content-Range %q", value))
	}
	first, err1 := strconv.ParseInt(firstPart, 10, 64)
	last, err2 := strconv.ParseInt(lastPart, 10, 64)
	if err1 != nil || err2 != nil {
		return retry.ProtocolErr(http.StatusPartialContent, fmt.Sprintf("malformed Content-Range %q", value))
	}
	if first != seg.Start || last != seg.End-1 {
		return retry.ProtocolErr(http.StatusPartialContent,
			fmt.Sprintf("server returned range %d-%d, requested %d-%d", first, last, seg.Start, seg.End-1))
	}
	if totalPart != "*" && totalSize >= 0 {
		total, err := strconv.ParseInt(totalPart, 10, 64)
		if err != nil {
			return retry.ProtocolErr(http.StatusPartialContent, fmt.Sprintf("malformed Content-Range %q", value))
		}
		if total != totalSize {
			return retry.ProtocolErr(http.StatusPartialContent,
				fmt.Sprintf("server reports total %d, expected %d", total, totalSize))
		}
	}
	return nil
}
