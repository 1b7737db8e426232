package hashserialization

import (
	"sort"

	"github.com/botho-project/botho/clustertag"
	"github.com/botho-project/botho/crypto/ringsig"
)

func serializeRingSignature(w *writer, sig *ringsig.Signature) {
	w.bytesField(0, sig.C0.Bytes())
	w.u64(uint64(len(sig.S)))
	for _, row := range sig.S {
		w.bytesField(0, row[0].Bytes())
		w.bytesField(0, row[1].Bytes())
	}
	for _, img := range sig.KeyImages {
		w.point(0, img)
	}
}

func serializeCommittedTagVector(w *writer, ct clustertag.CommittedTagVector) {
	clusters := make([]clustertag.ClusterID, 0, len(ct.ClusterCommitments))
	for c := range ct.ClusterCommitments {
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i] < clusters[j] })

	w.u64(uint64(len(clusters)))
	for _, c := range clusters {
		w.u64(uint64(c))
		w.point(0, ct.ClusterCommitments[c])
	}
	w.point(0, ct.BackgroundCommit)
}
