package repository

import (
	"context"
	"fmt"
	"path"

	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/storage"
)

// Report describes disagreements between the index and the item directories.
type Report struct {
	// Orphans are item directories with a metadata record but no index entry,
	// typically left by a crash between the artifact writes and the index append.
	Orphans []string `json:"orphans"`
	// Dangling are index entries whose metadata record or artifacts are missing.
	Dangling []string `json:"dangling"`
}

// Consistent reports whether the index and the directories agree.
func (r Report) Consistent() bool {
	return len(r.Orphans) == 0 && len(r.Dangling) == 0
}

// Check compares the index with the item directories on disk. It never
// modifies the repository.
func (r *Repository) Check(ctx context.Context) (Report, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return Report{}, err
	}
	store, err := r.ensure()
	if err != nil {
		return Report{}, err
	}
	dirs, err := store.Dirs("", MetaFile)
	if err != nil {
		return Report{}, fmt.Errorf("repository: check: %w", err)
	}

	report := Report{Orphans: []string{}, Dangling: []string{}}
	indexed := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		indexed[e.ID] = struct{}{}
		if !r.complete(ctx, store, e.ID) {
			report.Dangling = append(report.Dangling, e.ID)
		}
	}
	for _, d := range dirs {
		if _, ok := indexed[d]; !ok && ValidID(d) {
			report.Orphans = append(report.Orphans, d)
		}
	}
	return report, nil
}

// complete reports whether the metadata record and every artifact of id exist.
func (r *Repository) complete(ctx context.Context, store storage.Provider, id string) bool {
	item, err := r.ReadMeta(ctx, id)
	if err != nil {
		return false
	}
	for _, kind := range []models.ArtifactKind{models.ArtifactTXT, models.ArtifactSRT, models.ArtifactDOCX} {
		rel := item.Paths.Path(kind)
		if path.Dir(rel) != id || !store.Exists(rel) {
			return false
		}
	}
	return true
}
