package app

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/bft-labs/mdsync/internal/ports"
)

// Divergence summarizes how a remote document differs from a local one,
// in runes.
type Divergence struct {
	Inserted int
	Deleted  int
}

// Diverge compares local against remote.
// Returns false if they are identical.
func Diverge(local, remote string) (Divergence, bool) {
	if local == remote {
		return Divergence{}, false
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(local, remote, false))

	var d Divergence
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			d.Inserted += utf8.RuneCountInString(diff.Text)
		case diffmatchpatch.DiffDelete:
			d.Deleted += utf8.RuneCountInString(diff.Text)
		}
	}
	return d, true
}

// logDivergence warns when the reconciled remote value is not what was written.
func logDivergence(logger ports.Logger, written, remote string) {
	d, diverged := Diverge(written, remote)
	if !diverged {
		return
	}
	logger.Warn("remote post differs from saved document",
		ports.Int("inserted", d.Inserted),
		ports.Int("deleted", d.Deleted),
	)
}
