package checkpoint

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/vecrecall/distance"
	"github.com/hupe1980/vecrecall/persistence"
)

const (
	// CurrentName is the pointer blob holding the latest manifest name.
	CurrentName = "CURRENT"
	// Dir is the prefix under which snapshots and manifests are written.
	Dir = "checkpoints/"
	// ManifestVersion is the current manifest schema version.
	ManifestVersion = 1
)

// Manifest describes one saved checkpoint.
type Manifest struct {
	Version     int                     `json:"version"`
	ID          uint64                  `json:"id"`
	RunID       string                  `json:"run_id,omitempty"`
	Snapshot    string                  `json:"snapshot"`
	Codec       string                  `json:"codec"`
	Compression persistence.Compression `json:"compression"`
	Metric      distance.Metric         `json:"metric"`
	K           int                     `json:"k"`
	Dimension   int                     `json:"dimension"`
	NumQueries  int                     `json:"num_queries"`
	Seen        uint64                  `json:"seen"`
	Bytes       int                     `json:"bytes"`
	CreatedAt   time.Time               `json:"created_at"`
}

func snapshotName(id uint64) string {
	return fmt.Sprintf("%ssnapshot-%06d.gts", Dir, id)
}

func manifestName(id uint64) string {
	return fmt.Sprintf("%sMANIFEST-%06d.json", Dir, id)
}

// parseManifestID extracts the checkpoint ID from a manifest blob name.
func parseManifestID(name string) (uint64, bool) {
	s, ok := strings.CutPrefix(name, Dir+"MANIFEST-")
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, ".json")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// sortManifestNames orders manifest names by numeric ID, not lexically.
// Names that do not parse are dropped.
func sortManifestNames(names []string) []string {
	type entry struct {
		id   uint64
		name string
	}
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		if id, ok := parseManifestID(name); ok {
			entries = append(entries, entry{id: id, name: name})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.id, b.id) })

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}
