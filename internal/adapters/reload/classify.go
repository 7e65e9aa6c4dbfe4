package reload

import (
	"path"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
)

// Classify turns changed paths into a reload event. When every path is a
// stylesheet the event asks clients to swap those stylesheets in place;
// anything else needs a full page reload. Paths are slash-separated and
// relative to ps.Root; asset paths are reported as URL paths below the app.
func Classify(paths []string, ps *domain.PathSet) domain.ReloadEvent {
	if len(paths) == 0 {
		return domain.ReloadEvent{Kind: domain.ReloadFull}
	}

	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.EqualFold(path.Ext(p), ".css") {
			return domain.ReloadEvent{Kind: domain.ReloadFull}
		}
		urls = append(urls, assetURL(p, ps.App))
	}

	slices.Sort(urls)
	return domain.ReloadEvent{Kind: domain.ReloadAssets, Paths: slices.Compact(urls)}
}

// assetURL maps a root-relative path to the URL the app serves it from.
func assetURL(p, app string) string {
	p = path.Clean(p)
	if rest, ok := strings.CutPrefix(p, app+"/"); ok {
		return "/" + rest
	}
	return "/" + strings.TrimPrefix(p, "/")
}
