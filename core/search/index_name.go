package search

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const indexTimestampLayout = "2006-01-02t15-04-05z"

var indexSuffixRe = regexp.MustCompile(`-\d{4}-\d{2}-\d{2}t\d{2}-\d{2}-\d{2}z-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// NewIndexName returns a concrete index name for an alias, unique per
// migration run.
func NewIndexName(alias string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", alias, strings.ToLower(now.UTC().Format(indexTimestampLayout)), uuid.New())
}

// IndexAlias strips the suffix added by NewIndexName.
func IndexAlias(index string) string {
	return indexSuffixRe.ReplaceAllString(index, "")
}
