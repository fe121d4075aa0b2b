package generator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	manifestFileName    = ".press-manifest.json"
	manifestFileVersion = 1
)

// buildManifest stores metadata about the last successful build to support incremental runs.
type buildManifest struct {
	Version     int                      `json:"version"`
	GeneratedAt time.Time                `json:"generated_at"`
	Pages       map[string]manifestPage  `json:"pages"`
	Assets      map[string]manifestAsset `json:"assets"`
}

type manifestPage struct {
	Key          string    `json:"key"`
	Kind         string    `json:"kind"`
	Slug         string    `json:"slug,omitempty"`
	Route        string    `json:"route"`
	Output       string    `json:"output"`
	Template     string    `json:"template"`
	Hash         string    `json:"hash"`
	Checksum     string    `json:"checksum"`
	LastModified time.Time `json:"last_modified"`
	RenderedAt   time.Time `json:"rendered_at"`
}

type manifestAsset struct {
	Key      string    `json:"key"`
	Source   string    `json:"source"`
	Output   string    `json:"output"`
	Checksum string    `json:"checksum"`
	Size     int64     `json:"size"`
	CopiedAt time.Time `json:"copied_at"`
}

func newBuildManifest() *buildManifest {
	return &buildManifest{
		Version: manifestFileVersion,
		Pages:   map[string]manifestPage{},
		Assets:  map[string]manifestAsset{},
	}
}

func parseManifest(data []byte) (*buildManifest, error) {
	if len(data) == 0 {
		return newBuildManifest(), nil
	}
	var manifest buildManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("generator: parse manifest: %w", err)
	}
	if manifest.Pages == nil {
		manifest.Pages = map[string]manifestPage{}
	}
	if manifest.Assets == nil {
		manifest.Assets = map[string]manifestAsset{}
	}
	if manifest.Version == 0 {
		manifest.Version = manifestFileVersion
	}
	return &manifest, nil
}

func (m *buildManifest) marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	// Stable ordering for deterministic output.
	type orderedManifest struct {
		Version     int             `json:"version"`
		GeneratedAt time.Time       `json:"generated_at"`
		Pages       []manifestPage  `json:"pages"`
		Assets      []manifestAsset `json:"assets"`
	}
	ordered := orderedManifest{
		Version:     m.Version,
		GeneratedAt: m.GeneratedAt,
	}
	if ordered.Version == 0 {
		ordered.Version = manifestFileVersion
	}
	if len(m.Pages) > 0 {
		ordered.Pages = make([]manifestPage, 0, len(m.Pages))
		for _, entry := range m.Pages {
			ordered.Pages = append(ordered.Pages, entry)
		}
		sort.Slice(ordered.Pages, func(i, j int) bool {
			return ordered.Pages[i].Key < ordered.Pages[j].Key
		})
	}
	if len(m.Assets) > 0 {
		ordered.Assets = make([]manifestAsset, 0, len(m.Assets))
		for _, entry := range m.Assets {
			ordered.Assets = append(ordered.Assets, entry)
		}
		sort.Slice(ordered.Assets, func(i, j int) bool {
			return ordered.Assets[i].Key < ordered.Assets[j].Key
		})
	}
	return json.MarshalIndent(ordered, "", "  ")
}

func pageKey(kind pageKind, slug string) string {
	return string(kind) + "::" + strings.ToLower(strings.TrimSpace(slug))
}

func assetKey(source string) string {
	return strings.TrimSpace(source)
}

func (m *buildManifest) lookupPage(key string) (manifestPage, bool) {
	if m == nil || len(m.Pages) == 0 {
		return manifestPage{}, false
	}
	entry, ok := m.Pages[key]
	return entry, ok
}

func (m *buildManifest) setPage(entry manifestPage) {
	if m == nil {
		return
	}
	if m.Pages == nil {
		m.Pages = map[string]manifestPage{}
	}
	m.Pages[entry.Key] = entry
}

// shouldSkipPage reports whether a page is unchanged since the last build: the
// dependency hash matches and the previous output landed at the same path.
func (m *buildManifest) shouldSkipPage(key, hash, output string) bool {
	entry, ok := m.lookupPage(key)
	if !ok {
		return false
	}
	if strings.TrimSpace(hash) == "" || entry.Hash != hash {
		return false
	}
	return strings.TrimSpace(entry.Output) == strings.TrimSpace(output)
}

func (m *buildManifest) lookupAsset(source string) (manifestAsset, bool) {
	if m == nil || len(m.Assets) == 0 {
		return manifestAsset{}, false
	}
	entry, ok := m.Assets[assetKey(source)]
	return entry, ok
}

func (m *buildManifest) setAsset(entry manifestAsset) {
	if m == nil {
		return
	}
	if m.Assets == nil {
		m.Assets = map[string]manifestAsset{}
	}
	if entry.Key == "" {
		entry.Key = assetKey(entry.Source)
	}
	m.Assets[entry.Key] = entry
}

func (m *buildManifest) shouldSkipAsset(source, checksum, output string) bool {
	entry, ok := m.lookupAsset(source)
	if !ok {
		return false
	}
	if entry.Checksum != checksum {
		return false
	}
	return strings.TrimSpace(entry.Output) == strings.TrimSpace(output)
}

// prunePages drops manifest entries whose pages no longer exist so deleted
// posts do not linger in sitemaps or future incremental decisions.
func (m *buildManifest) prunePages(keys map[string]struct{}) {
	if m == nil || len(m.Pages) == 0 {
		return
	}
	for key := range m.Pages {
		if _, ok := keys[key]; !ok {
			delete(m.Pages, key)
		}
	}
}

func (m *buildManifest) pruneAssets(keys map[string]struct{}) {
	if m == nil || len(m.Assets) == 0 {
		return
	}
	for key := range m.Assets {
		if _, ok := keys[key]; !ok {
			delete(m.Assets, key)
		}
	}
}
