package persistence

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecrecall/distance"
)

const (
	// MagicNumber identifies ground-truth snapshots (ASCII: "GTS1")
	MagicNumber = 0x47545331
	// Version is the current file format version (v1.0.0)
	Version = 0x00010000

	headerSize = 32
	footerSize = 4
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrUnknownCompression = errors.New("unknown compression type")
	ErrUnknownMetric      = errors.New("unknown metric code")
	ErrTruncated          = errors.New("truncated snapshot")
)

// FileHeader is the 32-byte header at the start of every snapshot.
type FileHeader struct {
	Magic       uint32 // 0x47545331 ("GTS1")
	Version     uint32 // File format version
	Compression uint8  // Compression of the body block
	Metric      uint8  // 1=l2, 2=cosine
	TieBreak    uint8  // groundtruth.TieBreak
	Padding1    uint8
	K           uint32 // Neighbors per query
	Dimension   uint32 // Query dimensionality
	NumQueries  uint32 // Number of query vectors
	Seen        uint64 // Vectors ingested when the snapshot was taken
}

func metricCode(m distance.Metric) (uint8, error) {
	switch m {
	case distance.MetricL2:
		return 1, nil
	case distance.MetricCosine:
		return 2, nil
	default:
		return 0, &distance.ErrUnsupportedMetric{Name: string(m)}
	}
}

func metricFromCode(c uint8) (distance.Metric, error) {
	switch c {
	case 1:
		return distance.MetricL2, nil
	case 2:
		return distance.MetricCosine, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownMetric, c)
	}
}
