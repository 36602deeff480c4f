package chatlist

import (
	"testing"
	"time"
)

func conv(peerID int64, sentAt time.Time, content string) Conversation {
	return Conversation{
		PeerUserID:  peerID,
		DisplayName: "peer",
		Category:    "both",
		LastMessage: &LastMessage{
			Content:  content,
			Type:     "text",
			SenderID: peerID,
			SentAt:   sentAt,
		},
		LastActivity: sentAt,
	}
}

func TestMergeKeepsNewerLocalEntry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	local := map[int64]Conversation{
		2: conv(2, base.Add(time.Minute), "optimistic just-sent"),
	}
	remote := map[int64]Conversation{
		2: conv(2, base, "stale server state"),
	}

	merged := Merge(local, remote)

	if merged[2].LastMessage.Content != "optimistic just-sent" {
		t.Fatalf("stale server snapshot clobbered a newer local entry: %q", merged[2].LastMessage.Content)
	}
}

func TestMergePrefersNewerRemoteEntry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	local := map[int64]Conversation{
		2: conv(2, base, "old local"),
	}
	remote := map[int64]Conversation{
		2: conv(2, base.Add(time.Minute), "fresh from server"),
	}

	merged := Merge(local, remote)

	if merged[2].LastMessage.Content != "fresh from server" {
		t.Fatalf("expected remote entry to win: %q", merged[2].LastMessage.Content)
	}
}

func TestMergeUsesSnapshotKeySet(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	local := map[int64]Conversation{
		2: conv(2, base, "kept"),
		3: conv(3, base, "peer newly blocked server-side"),
	}
	remote := map[int64]Conversation{
		2: conv(2, base, "kept"),
		4: conv(4, base, "brand new peer"),
	}

	merged := Merge(local, remote)

	if _, ok := merged[3]; ok {
		t.Fatalf("expected peer 3 dropped: snapshot no longer reports it")
	}
	if _, ok := merged[4]; !ok {
		t.Fatalf("expected server-only peer 4 added")
	}
	if len(merged) != 2 {
		t.Fatalf("unexpected merged size %d", len(merged))
	}
}

func TestMergeResyncAdoptsOlderServerTruth(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// The cached last message was just deleted server-side; the snapshot
	// restores an older one, which must still win.
	local := map[int64]Conversation{
		2: conv(2, base, "deleted last message"),
	}
	remote := map[int64]Conversation{
		2: conv(2, base.Add(-time.Hour), "previous message restored"),
	}

	merged := mergeResync(local, remote, map[int64]time.Time{})

	if merged[2].LastMessage.Content != "previous message restored" {
		t.Fatalf("resync kept a stale local entry: %q", merged[2].LastMessage.Content)
	}
}

func TestMergeResyncKeepsUnconfirmedOptimisticSend(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	local := map[int64]Conversation{
		2: conv(2, base.Add(time.Minute), "optimistic just-sent"),
	}
	remote := map[int64]Conversation{
		2: conv(2, base, "snapshot without the send"),
	}
	pending := map[int64]time.Time{2: base.Add(time.Minute)}

	merged := mergeResync(local, remote, pending)

	if merged[2].LastMessage.Content != "optimistic just-sent" {
		t.Fatalf("resync clobbered an unconfirmed send: %q", merged[2].LastMessage.Content)
	}
	if _, ok := pending[2]; !ok {
		t.Fatalf("unconfirmed send must stay pending")
	}
}

func TestMergeResyncClearsConfirmedPending(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	local := map[int64]Conversation{
		2: conv(2, base, "optimistic"),
	}
	remote := map[int64]Conversation{
		2: conv(2, base, "confirmed by server"),
	}
	pending := map[int64]time.Time{
		2: base,
		9: base,
	}

	merged := mergeResync(local, remote, pending)

	if merged[2].LastMessage.Content != "confirmed by server" {
		t.Fatalf("expected the confirming snapshot adopted: %q", merged[2].LastMessage.Content)
	}
	if len(pending) != 0 {
		t.Fatalf("confirmed and vanished peers must leave pending, got %v", pending)
	}
}

func TestMergePageNeverEvicts(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	local := map[int64]Conversation{
		2: conv(2, base.Add(time.Hour), "shown already"),
	}
	page := []Conversation{
		conv(2, base, "older duplicate from next page"),
		conv(5, base.Add(-time.Hour), "older peer"),
	}

	merged := mergePage(local, page)

	if merged[2].LastMessage.Content != "shown already" {
		t.Fatalf("load-more page replaced a newer shown entry")
	}
	if _, ok := merged[5]; !ok {
		t.Fatalf("expected older peer appended")
	}
}

func TestMergeEntriesWithoutMessagesCompareByActivity(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	localOnlySwipe := Conversation{PeerUserID: 7, LastActivity: base.Add(time.Minute)}
	remoteOnlySwipe := Conversation{PeerUserID: 7, LastActivity: base}

	merged := Merge(
		map[int64]Conversation{7: localOnlySwipe},
		map[int64]Conversation{7: remoteOnlySwipe},
	)

	if !merged[7].LastActivity.Equal(base.Add(time.Minute)) {
		t.Fatalf("expected newer messageless entry to win")
	}
}
