package probe

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanq16/hiruko/internal/utils"
)

func testClient() *utils.HTTPClient {
	return utils.NewHTTPClient(utils.HTTPClientConfig{})
}

func TestFetchHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result, err := Fetch(testClient(), server.URL+"/files/report.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), result.ContentLength)
	assert.True(t, result.AcceptRanges)
	assert.Equal(t, `"abc123"`, result.ETag)
	assert.Equal(t, "Wed, 21 Oct 2015 07:28:00 GMT", result.LastModified)
	assert.Equal(t, "report.pdf", result.Filename)
}

func TestFetchFallsBackToRangedGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		assert.Equal(t, "bytes=0-0", r.Header.Get("Range"))
		w.Header().Set("Content-Range", "bytes 0-0/9000")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte{0})
	}))
	defer server.Close()

	result, err := Fetch(testClient(), server.URL+"/data.bin", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), result.ContentLength)
	assert.True(t, result.AcceptRanges)
}

func TestFetchServerIgnoresRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		w.Header().Set("Content-Length", "5")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	result, err := Fetch(testClient(), server.URL+"/x", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.ContentLength)
	assert.False(t, result.AcceptRanges)
}

func TestFetchUnknownLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			http.Error(w, "nope", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Range", "bytes 0-0/*")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte{0})
	}))
	defer server.Close()

	result, err := Fetch(testClient(), server.URL+"/stream", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), result.ContentLength)
	assert.True(t, result.AcceptRanges)
}

func TestFilenameFromContentDisposition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="../evil/na me#.tar.gz"`)
		w.Header().Set("Content-Length", "10")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result, err := Fetch(testClient(), server.URL+"/ignored", nil)
	require.NoError(t, err)
	assert.Equal(t, "na me_.tar.gz", result.Filename)
}

func TestParseContentRangeTotal(t *testing.T) {
	cases := []struct {
		value string
		total int64
		ok    bool
	}{
		{"bytes 0-0/1000", 1000, true},
		{"bytes 0-0/*", 0, false},
		{"bytes 0-0", 0, false},
		{"items 0-0/1000", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		total, ok := parseContentRangeTotal(tc.value)
		assert.Equal(t, tc.ok, ok, tc.value)
		if tc.ok {
			assert.Equal(t, tc.total, total, tc.value)
		}
	}
}

func TestValidate(t *testing.T) {
	fresh := &Result{ContentLength: 1000, ETag: `"v1"`, LastModified: "Mon, 01 Jan 2024 00:00:00 GMT"}

	t.Run("no stored metadata passes", func(t *testing.T) {
		assert.NoError(t, Validate(Stored{}, fresh))
	})

	t.Run("matching snapshot passes", func(t *testing.T) {
		stored := Stored{ETag: `"v1"`, LastModified: fresh.LastModified, TotalSize: 1000, HasMetadata: true}
		assert.NoError(t, Validate(stored, fresh))
	})

	t.Run("etag change detected", func(t *testing.T) {
		stored := Stored{ETag: `"v0"`, TotalSize: 1000, HasMetadata: true}
		err := Validate(stored, fresh)
		var changed *RemoteChangedError
		require.ErrorAs(t, err, &changed)
		assert.True(t, changed.ETagChanged)
		assert.False(t, changed.SizeChanged)
	})

	t.Run("size change detected", func(t *testing.T) {
		stored := Stored{TotalSize: 999, HasMetadata: true}
		err := Validate(stored, &Result{ContentLength: 1000})
		var changed *RemoteChangedError
		require.ErrorAs(t, err, &changed)
		assert.True(t, changed.SizeChanged)
	})

	t.Run("missing validator on one side is not a change", func(t *testing.T) {
		stored := Stored{ETag: `"v1"`, TotalSize: 1000, HasMetadata: true}
		assert.NoError(t, Validate(stored, &Result{ContentLength: 1000}))
	})

	t.Run("unknown sizes are not compared", func(t *testing.T) {
		stored := Stored{TotalSize: -1, HasMetadata: true}
		assert.NoError(t, Validate(stored, &Result{ContentLength: 1000}))
	})
}

func TestFetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Fetch(testClient(), server.URL+"/missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint(http.StatusNotFound))
}
