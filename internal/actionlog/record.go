package actionlog

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Record statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metadata keys set on failed dispatches.
const (
	MetaStatus = "status"
	MetaError  = "error"
)

// Record is one row of the action log.
type Record struct {
	ID        string            `json:"id"`
	EntityID  string            `json:"entity_id"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Command   string            `json:"command"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink appends records durably.
type Sink interface {
	Append(ctx context.Context, records []Record) error
}

// Filter selects records for List. Zero values match everything.
type Filter struct {
	EntityID string
	Command  string
	Since    time.Time
	Limit    int // default 50, max 500
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

func (f Filter) match(r Record) bool {
	if f.EntityID != "" && r.EntityID != f.EntityID {
		return false
	}
	if f.Command != "" && r.Command != f.Command {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Reader lists records, most recent first.
type Reader interface {
	List(ctx context.Context, filter Filter) ([]Record, error)
}

var metaEscaper = strings.NewReplacer("%", "%25", ";", "%3B", "=", "%3D")

// EncodeMetadata renders m as sorted "k=v;k=v".
func EncodeMetadata(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(metaEscaper.Replace(k))
		b.WriteByte('=')
		b.WriteString(metaEscaper.Replace(m[k]))
	}
	return b.String()
}

// DecodeMetadata parses the output of EncodeMetadata. Malformed pairs are
// kept verbatim under their raw key.
func DecodeMetadata(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		k, v, _ := strings.Cut(pair, "=")
		out[unescape(k)] = unescape(v)
	}
	return out
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
