package chatlist

import "time"

// Merge reconciles the local cache with a full server snapshot during
// bootstrap and refresh. The key set of the result is the snapshot's:
// peers the server no longer reports are dropped. For peers on both
// sides the version with the more recent last-message timestamp wins,
// so a local optimistic update is never clobbered by a stale server
// response that raced ahead of a just-sent message.
func Merge(local, remote map[int64]Conversation) map[int64]Conversation {
	merged := make(map[int64]Conversation, len(remote))
	for peerID, remoteConv := range remote {
		if localConv, ok := local[peerID]; ok && lastSentAt(localConv).After(lastSentAt(remoteConv)) {
			merged[peerID] = localConv
			continue
		}
		merged[peerID] = remoteConv
	}
	return merged
}

// mergeResync reconciles a full resync snapshot. A resync exists to
// restore server truth the client cannot infer incrementally: after a
// delete the restored last message is typically older than the cached
// deleted one, so the snapshot must win even when it looks stale. The
// one exception is a peer with an unconfirmed optimistic send newer
// than anything the snapshot reports; that local entry is kept until a
// later snapshot catches up. Confirmed or vanished peers are cleared
// from pending.
func mergeResync(local, remote map[int64]Conversation, pending map[int64]time.Time) map[int64]Conversation {
	merged := make(map[int64]Conversation, len(remote))
	for peerID, remoteConv := range remote {
		if sentAt, unconfirmed := pending[peerID]; unconfirmed {
			if !sentAt.After(lastSentAt(remoteConv)) {
				delete(pending, peerID)
			} else if localConv, ok := local[peerID]; ok {
				merged[peerID] = localConv
				continue
			}
		}
		merged[peerID] = remoteConv
	}
	for peerID := range pending {
		if _, ok := remote[peerID]; !ok {
			delete(pending, peerID)
		}
	}
	return merged
}

// mergePage folds one additional server page into the cache without
// dropping anything: load-more appends strictly older entries and must
// never evict already-shown peers.
func mergePage(local map[int64]Conversation, page []Conversation) map[int64]Conversation {
	merged := make(map[int64]Conversation, len(local)+len(page))
	for peerID, conv := range local {
		merged[peerID] = conv
	}
	for _, conv := range page {
		if existing, ok := merged[conv.PeerUserID]; ok && lastSentAt(existing).After(lastSentAt(conv)) {
			continue
		}
		merged[conv.PeerUserID] = conv
	}
	return merged
}
