package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qepting91/reblogbot/internal/domain"
)

// Fixture row kinds.
const (
	KindPost   = "post"   // a post on a blog, returned by Posts
	KindTagged = "tagged" // a post returned by tag search
)

// Fixture is one row of a mock platform fixture file.
type Fixture struct {
	Kind string
	// Blog owns the post for KindPost rows.
	Blog string
	Post domain.Post
}

// LoadFixtures reads a CSV with the header
//
//	kind,blog,id,reblog_key,blog_name,tags,slug,timestamp,content
//
// Tags are separated by '|'. Timestamps are RFC 3339 or unix seconds.
// Malformed rows are skipped.
func LoadFixtures(path string) ([]Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadFixtures(f)
}

func ReadFixtures(r io.Reader) ([]Fixture, error) {
	cr := csv.NewReader(stripBOM(r))
	cr.FieldsPerRecord = -1

	var fixtures []Fixture
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		line++
		if line == 1 {
			continue // Skip header
		}
		if len(record) < 9 {
			continue
		}

		kind := strings.TrimSpace(record[0])
		if kind != KindPost && kind != KindTagged {
			continue
		}

		ts, ok := parseTimestamp(strings.TrimSpace(record[7]))
		if !ok {
			continue
		}

		post := domain.Post{
			ID:        strings.TrimSpace(record[2]),
			ReblogKey: strings.TrimSpace(record[3]),
			BlogName:  strings.TrimSpace(record[4]),
			Tags:      splitTags(record[5]),
			Slug:      strings.TrimSpace(record[6]),
			Timestamp: ts,
		}
		if content := record[8]; content != "" {
			post.Trail = []domain.TrailItem{{ContentRaw: content}}
		}

		fixtures = append(fixtures, Fixture{
			Kind: kind,
			Blog: strings.TrimSpace(record[1]),
			Post: post,
		})
	}
	return fixtures, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, "|") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
