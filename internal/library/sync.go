package library

import (
	"slices"
	"time"
)

// SyncTolerance absorbs clock skew between devices; timestamps closer than
// this are treated as equal.
const SyncTolerance = time.Second

// SyncPlan is what a reconciliation pass needs to transfer.
type SyncPlan struct {
	// Upload holds local games the remote side is missing or has older copies of
	Upload []Game
	// Download holds remote games the local side is missing or has older copies of
	Download []Game
	// DeleteRemote holds ids deleted locally that still exist remotely
	DeleteRemote []string
}

// Empty reports whether nothing needs to be transferred.
func (p SyncPlan) Empty() bool {
	return len(p.Upload) == 0 && len(p.Download) == 0 && len(p.DeleteRemote) == 0
}

// Reconcile compares two game sets by id, last writer wins. Tombstoned ids
// are never uploaded or downloaded; they are scheduled for remote deletion
// when the remote side still has them.
func Reconcile(local, remote []Game, tombstones []string) SyncPlan {
	var plan SyncPlan

	deleted := make(map[string]bool, len(tombstones))
	for _, id := range tombstones {
		deleted[id] = true
	}

	remoteByID := make(map[string]Game, len(remote))
	for _, g := range remote {
		remoteByID[g.ID] = g
	}
	localByID := make(map[string]Game, len(local))
	for _, g := range local {
		localByID[g.ID] = g
	}

	for _, id := range tombstones {
		if _, ok := remoteByID[id]; ok {
			plan.DeleteRemote = append(plan.DeleteRemote, id)
		}
	}

	for _, l := range local {
		if deleted[l.ID] {
			continue
		}
		r, ok := remoteByID[l.ID]
		if !ok || l.UpdatedAt.Sub(r.UpdatedAt) > SyncTolerance {
			plan.Upload = append(plan.Upload, l)
		}
	}

	for _, r := range remote {
		if deleted[r.ID] {
			continue
		}
		l, ok := localByID[r.ID]
		if !ok || r.UpdatedAt.Sub(l.UpdatedAt) > SyncTolerance {
			plan.Download = append(plan.Download, r)
		}
	}

	slices.Sort(plan.DeleteRemote)
	return plan
}
