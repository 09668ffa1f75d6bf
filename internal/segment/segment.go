package segment

import "fmt"

// Segment is a half-open byte range [Start, End) of the target file.
type Segment struct {
	Start int64
	End   int64
}

func (s Segment) Length() int64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// RangeHeader returns the HTTP Range header value for this segment
// (inclusive end, per RFC 9110).
func (s Segment) RangeHeader() string {
	if s.Start >= s.End {
		return "bytes=0-0"
	}
	return fmt.Sprintf("bytes=%d-%d", s.Start, s.End-1)
}

// Plan divides totalSize into count near-equal segments; the last segment
// absorbs the remainder so the lengths sum to totalSize exactly. Returns nil
// when totalSize is 0 or count is not positive. count == 1 yields a single
// segment spanning the whole file.
func Plan(totalSize int64, count int) []Segment {
	if totalSize <= 0 || count <= 0 {
		return nil
	}
	if int64(count) > totalSize {
		count = int(totalSize)
	}
	base := totalSize / int64(count)
	segments := make([]Segment, count)
	var offset int64
	for i := range segments {
		end := offset + base
		if i == count-1 {
			end = totalSize
		}
		segments[i] = Segment{Start: offset, End: end}
		offset = end
	}
	return segments
}
