package probe

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/tanq16/hiruko/internal/utils"
)

// Result captures what the remote server reports about a resource before any
// payload bytes are fetched. ContentLength is -1 when the server does not
// disclose a size.
type Result struct {
	ContentLength int64
	AcceptRanges  bool
	ETag          string
	LastModified  string
	Filename      string
}

// Fetch probes url with a HEAD request and falls back to a one-byte ranged GET
// when the server rejects HEAD. The returned metadata always comes from the
// final response after redirects.
func Fetch(client *utils.HTTPClient, rawURL string, headers map[string]string) (*Result, error) {
	log := utils.GetLogger("probe")
	req, err := http.NewRequest(http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HEAD request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		defer resp.Body.Close()
		return fromHead(resp, rawURL), nil
	}
	if err == nil {
		resp.Body.Close()
		log.Debug().Str("op", "probe").Int("status", resp.StatusCode).Msg("HEAD rejected, probing with ranged GET")
	} else {
		log.Debug().Str("op", "probe").Err(err).Msg("HEAD failed, probing with ranged GET")
	}
	return fetchRanged(client, rawURL, headers)
}

func fromHead(resp *http.Response, rawURL string) *Result {
	result := &Result{
		ContentLength: -1,
		ETag:          resp.Header.Get("ETag"),
		LastModified:  resp.Header.Get("Last-Modified"),
		Filename:      filenameFrom(resp, rawURL),
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if size, err := strconv.ParseInt(cl, 10, 64); err == nil && size >= 0 {
			result.ContentLength = size
		}
	}
	if strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes") {
		result.AcceptRanges = true
	}
	return result
}

// fetchRanged requests bytes=0-0 and reads the total size out of the
// Content-Range header. A 206 response doubles as proof of range support.
func fetchRanged(client *utils.HTTPClient, rawURL string, headers map[string]string) (*Result, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating probe request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error probing %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	result := &Result{
		ContentLength: -1,
		ETag:          resp.Header.Get("ETag"),
		LastModified:  resp.Header.Get("Last-Modified"),
		Filename:      filenameFrom(resp, rawURL),
	}
	switch {
	case resp.StatusCode == http.StatusPartialContent:
		result.AcceptRanges = true
		if total, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
			result.ContentLength = total
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Server ignored the Range header, treat as a plain response.
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			if size, err := strconv.ParseInt(cl, 10, 64); err == nil && size >= 0 {
				result.ContentLength = size
			}
		}
	default:
		return nil, fmt.Errorf("error probing %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return result, nil
}

// parseContentRangeTotal extracts the complete length from a
// "bytes first-last/total" header value.
func parseContentRangeTotal(value string) (int64, bool) {
	if !strings.HasPrefix(value, "bytes ") {
		return 0, false
	}
	slash := strings.LastIndex(value, "/")
	if slash < 0 {
		return 0, false
	}
	totalPart := value[slash+1:]
	if totalPart == "*" {
		return 0, false
	}
	total, err := strconv.ParseInt(totalPart, 10, 64)
	if err != nil || total < 0 {
		return 0, false
	}
	return total, true
}

// filenameFrom derives an output filename from Content-Disposition when
// present, otherwise from the URL path.
func filenameFrom(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return utils.SanitizeFilename(name)
			}
		}
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "/" && name != "." {
			return utils.SanitizeFilename(name)
		}
	}
	return "download"
}
