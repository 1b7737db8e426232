// Package clusterwealthstore persists the node-wide cluster wealth map
// (spec.md §4.5) that feeds the progressive fee curve: W_Ck, the total
// value currently attributed to cluster Ck across every unspent output.
//
// Grounded on the teacher's utxoindex-style full-map-on-disk stores
// (e.g. circulatingSupplyStore), since — unlike the UTXO and key-image
// sets, which are naturally keyed per-entry — cluster wealth is a small,
// frequently-read aggregate better kept wholly in memory and flushed to
// disk incrementally as individual cluster deltas land.
package clusterwealthstore

import (
	"encoding/binary"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/infrastructure/db"
	"github.com/pkg/errors"
)

// Store is the on-disk cluster-wealth map.
type Store struct {
	db *db.DB
}

// New wraps an open ledger database.
func New(handle *db.DB) *Store {
	return &Store{db: handle}
}

func clusterKey(cluster clustertag.ClusterID) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(cluster))
	return k[:]
}

// Load reconstructs the full cluster-wealth map from disk, called once
// at node startup; consensusstatemanager keeps the authoritative copy
// in memory afterward and calls Stage for incremental updates.
func (s *Store) Load() (*clustertag.Wealth, error) {
	wealth := clustertag.NewWealth()
	var iterErr error
	err := s.db.Iterate(db.NamespaceClusterWealth, nil, func(k, v []byte) bool {
		if len(k) != 8 || len(v) != 8 {
			iterErr = errors.New("clusterwealthstore: malformed entry")
			return false
		}
		cluster := clustertag.ClusterID(binary.BigEndian.Uint64(k))
		weight := binary.BigEndian.Uint64(v)
		wealth.Set(cluster, weight)
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "clusterwealthstore load")
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return wealth, nil
}

// Stage writes cluster's new wealth value into batch, deleting the
// entry entirely if the cluster now carries zero wealth, mirroring
// clustertag.Wealth.ApplyDelta's own zero-pruning.
func Stage(batch *db.Batch, cluster clustertag.ClusterID, wealth uint64) {
	if wealth == 0 {
		batch.Delete(db.NamespaceClusterWealth, clusterKey(cluster))
		return
	}
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], wealth)
	batch.Put(db.NamespaceClusterWealth, clusterKey(cluster), v[:])
}
