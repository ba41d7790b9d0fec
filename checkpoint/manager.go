package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/vecrecall/blobstore"
	"github.com/hupe1980/vecrecall/codec"
	"github.com/hupe1980/vecrecall/groundtruth"
	"github.com/hupe1980/vecrecall/persistence"
)

// ErrNoCheckpoint is returned when the store holds no committed checkpoint.
var ErrNoCheckpoint = errors.New("checkpoint: no checkpoint found")

// Option configures a Manager.
type Option func(*Manager)

// WithCompression sets the snapshot body compression (default LZ4).
func WithCompression(c persistence.Compression) Option {
	return func(m *Manager) { m.compression = c }
}

// WithCodec sets the manifest codec (default codec.Default).
func WithCodec(c codec.Codec) Option {
	return func(m *Manager) { m.codec = c }
}

// WithRunID tags every manifest with the given run identifier.
func WithRunID(id string) Option {
	return func(m *Manager) { m.runID = id }
}

// WithLogger sets the logger used for save and load events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager saves and loads tracker checkpoints.
type Manager struct {
	store       blobstore.Store
	codec       codec.Codec
	compression persistence.Compression
	runID       string
	logger      *slog.Logger
	now         func() time.Time

	mu sync.Mutex
}

// NewManager creates a checkpoint manager on top of store.
func NewManager(store blobstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		codec:       codec.Default,
		compression: persistence.CompressionLZ4,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save writes a snapshot of t and advances CURRENT to it.
func (m *Manager) Save(ctx context.Context, t *groundtruth.Tracker) (*Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var nextID uint64 = 1
	latest, err := m.latest(ctx)
	switch {
	case err == nil:
		nextID = latest.ID + 1
	case !errors.Is(err, ErrNoCheckpoint):
		return nil, err
	}

	var buf bytes.Buffer
	if err := persistence.Save(&buf, t, m.compression); err != nil {
		return nil, fmt.Errorf("checkpoint: encode snapshot: %w", err)
	}

	man := &Manifest{
		Version:     ManifestVersion,
		ID:          nextID,
		RunID:       m.runID,
		Snapshot:    snapshotName(nextID),
		Codec:       m.codec.Name(),
		Compression: m.compression,
		Metric:      t.Metric(),
		K:           t.K(),
		Dimension:   t.Dimension(),
		NumQueries:  t.NumQueries(),
		Seen:        t.Seen(),
		Bytes:       buf.Len(),
		CreatedAt:   m.now().UTC(),
	}

	// 1. Snapshot
	if err := m.store.Put(ctx, man.Snapshot, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("checkpoint: write snapshot: %w", err)
	}

	// 2. Manifest
	data, err := codec.Indent(m.codec, man)
	if err != nil {
		return nil, err
	}
	name := manifestName(nextID)
	if err := m.store.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("checkpoint: write manifest: %w", err)
	}

	// 3. CURRENT pointer
	if err := m.store.Put(ctx, CurrentName, []byte(name)); err != nil {
		return nil, fmt.Errorf("checkpoint: commit: %w", err)
	}

	m.logger.Debug("checkpoint saved",
		"id", man.ID,
		"seen", man.Seen,
		"bytes", man.Bytes,
		"compression", man.Compression.String(),
	)
	return man, nil
}

// Latest returns the manifest CURRENT points to.
func (m *Manager) Latest(ctx context.Context) (*Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest(ctx)
}

func (m *Manager) latest(ctx context.Context) (*Manifest, error) {
	current, err := m.store.Get(ctx, CurrentName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, err
	}
	return m.readManifest(ctx, strings.TrimSpace(string(current)))
}

func (m *Manager) readManifest(ctx context.Context, name string) (*Manifest, error) {
	data, err := m.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read manifest %s: %w", name, err)
	}

	var man Manifest
	if err := m.codec.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("checkpoint: decode manifest %s: %w", name, err)
	}
	if man.Version != ManifestVersion {
		return nil, fmt.Errorf("checkpoint: unsupported manifest version: %d (expected %d)", man.Version, ManifestVersion)
	}
	return &man, nil
}

// Load restores the tracker from the latest checkpoint.
func (m *Manager) Load(ctx context.Context, opts ...groundtruth.Option) (*groundtruth.Tracker, *Manifest, error) {
	man, err := m.Latest(ctx)
	if err != nil {
		return nil, nil, err
	}
	t, err := m.LoadManifest(ctx, man, opts...)
	if err != nil {
		return nil, nil, err
	}
	return t, man, nil
}

// LoadManifest restores the tracker recorded by a specific manifest.
func (m *Manager) LoadManifest(ctx context.Context, man *Manifest, opts ...groundtruth.Option) (*groundtruth.Tracker, error) {
	data, err := m.store.Get(ctx, man.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read snapshot %s: %w", man.Snapshot, err)
	}
	t, err := persistence.Load(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: decode snapshot %s: %w", man.Snapshot, err)
	}
	if t.Seen() != man.Seen {
		return nil, fmt.Errorf("checkpoint: snapshot %s has seen=%d, manifest says %d: %w",
			man.Snapshot, t.Seen(), man.Seen, groundtruth.ErrCorruptState)
	}

	m.logger.Debug("checkpoint loaded", "id", man.ID, "seen", man.Seen)
	return t, nil
}

func (m *Manager) manifestNames(ctx context.Context) ([]string, error) {
	names, err := m.store.List(ctx, Dir+"MANIFEST-")
	if err != nil {
		return nil, err
	}
	return sortManifestNames(names), nil
}

// List returns all manifests in ascending ID order.
func (m *Manager) List(ctx context.Context) ([]*Manifest, error) {
	names, err := m.manifestNames(ctx)
	if err != nil {
		return nil, err
	}

	manifests := make([]*Manifest, 0, len(names))
	for _, name := range names {
		man, err := m.readManifest(ctx, name)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, man)
	}
	return manifests, nil
}

// Prune deletes all but the newest keep checkpoints. The checkpoint CURRENT
// points to is never deleted.
func (m *Manager) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	latest, err := m.latest(ctx)
	if err != nil {
		return 0, err
	}

	names, err := m.manifestNames(ctx)
	if err != nil {
		return 0, err
	}
	if len(names) <= keep {
		return 0, nil
	}

	removed := 0
	for _, name := range names[:len(names)-keep] {
		man, err := m.readManifest(ctx, name)
		if err != nil {
			return removed, err
		}
		if man.ID == latest.ID {
			continue
		}
		if err := m.store.Delete(ctx, man.Snapshot); err != nil {
			return removed, err
		}
		if err := m.store.Delete(ctx, name); err != nil {
			return removed, err
		}
		removed++
	}

	m.logger.Debug("checkpoints pruned", "removed", removed, "kept", keep)
	return removed, nil
}
