package chatlist

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPageSize        = 20
	defaultSparseThreshold = 3
	defaultMaxAutoPages    = 5
	maxResyncPages         = 50
	resyncTimeout          = 30 * time.Second
)

type Options struct {
	Fetcher   Fetcher
	Transport Transport
	Category  string
	// PageSize is the limit requested per server page.
	PageSize int
	// SparseThreshold triggers auto-pagination: a freshly loaded page
	// with fewer kept items than this, while more pages exist, pulls the
	// next page immediately so the visible list is never near-empty.
	SparseThreshold int
	MaxAutoPages    int
	Logger          *zap.Logger
}

// Projection owns the conversation cache exclusively. It is mutated only
// by bootstrap/load-more merges, optimistic local updates, and the two
// event handlers; a resync is scheduled in the background, never awaited
// inline, so event handling cannot stall on a fetch.
type Projection struct {
	fetcher   Fetcher
	transport Transport
	log       *zap.Logger

	pageSize        int
	sparseThreshold int
	maxAutoPages    int

	mu            sync.Mutex
	category      string
	generation    uint64
	conversations map[int64]Conversation
	nextOffset    int
	hasMore       bool

	// pendingSends holds the sent-at of each optimistic local send not
	// yet reflected by a server snapshot; a resync may not clobber them.
	pendingSends map[int64]time.Time

	resyncInFlight bool
	resyncDirty    bool
}

func New(opts Options) *Projection {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.SparseThreshold <= 0 {
		opts.SparseThreshold = defaultSparseThreshold
	}
	if opts.MaxAutoPages <= 0 {
		opts.MaxAutoPages = defaultMaxAutoPages
	}

	return &Projection{
		fetcher:         opts.Fetcher,
		transport:       opts.Transport,
		log:             opts.Logger,
		pageSize:        opts.PageSize,
		sparseThreshold: opts.SparseThreshold,
		maxAutoPages:    opts.MaxAutoPages,
		category:        opts.Category,
		conversations:   make(map[int64]Conversation),
		pendingSends:    make(map[int64]time.Time),
		hasMore:         true,
	}
}

// Bootstrap loads the first page(s) for the current category and merges
// them into the cache. Safe to call again after reconnects; a stale
// response from a superseded category is discarded.
func (p *Projection) Bootstrap(ctx context.Context) error {
	if p.fetcher == nil {
		return fmt.Errorf("chatlist fetcher is not configured")
	}

	p.mu.Lock()
	gen := p.generation
	category := p.category
	p.mu.Unlock()

	items, nextOffset, hasMore, err := p.fetchFrom(ctx, category, 0)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return nil
	}
	p.conversations = Merge(p.conversations, indexByPeer(items))
	p.nextOffset = nextOffset
	p.hasMore = hasMore
	return nil
}

// LoadMore appends the next, strictly older, page. Already-shown entries
// are never reordered by it; only the merge rule may replace one.
func (p *Projection) LoadMore(ctx context.Context) error {
	if p.fetcher == nil {
		return fmt.Errorf("chatlist fetcher is not configured")
	}

	p.mu.Lock()
	if !p.hasMore {
		p.mu.Unlock()
		return nil
	}
	gen := p.generation
	category := p.category
	offset := p.nextOffset
	p.mu.Unlock()

	items, nextOffset, hasMore, err := p.fetchFrom(ctx, category, offset)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return nil
	}
	p.conversations = mergePage(p.conversations, items)
	p.nextOffset = nextOffset
	p.hasMore = hasMore
	return nil
}

// SetCategory switches the projected category: the cache is rebuilt from
// scratch and any in-flight fetch for the old category is ignored when
// it lands.
func (p *Projection) SetCategory(ctx context.Context, category string) error {
	p.mu.Lock()
	p.generation++
	p.category = category
	p.conversations = make(map[int64]Conversation)
	p.pendingSends = make(map[int64]time.Time)
	p.nextOffset = 0
	p.hasMore = true
	p.mu.Unlock()

	return p.Bootstrap(ctx)
}

// ApplyEvent handles one real-time event. It never blocks on the
// network: when the event cannot be applied incrementally a full resync
// is scheduled instead.
func (p *Projection) ApplyEvent(event Event) {
	switch ev := event.(type) {
	case NewMessageEvent:
		p.applyNewMessage(ev)
	case DeleteMessageEvent:
		p.scheduleResync()
	default:
		if p.log != nil {
			p.log.Warn("chatlist received unknown event type")
		}
	}
}

func (p *Projection) applyNewMessage(ev NewMessageEvent) {
	p.mu.Lock()

	conv, tracked := p.conversations[ev.SenderID]
	if !tracked {
		// First message from a brand-new match: the client has no name,
		// avatar, or category to materialize an entry from.
		p.mu.Unlock()
		p.scheduleResync()
		return
	}

	conv.LastMessage = &LastMessage{
		Content:  ev.Content,
		Type:     ev.Type,
		SenderID: ev.SenderID,
		SentAt:   ev.SentAt,
	}
	if ev.SentAt.After(conv.LastActivity) {
		conv.LastActivity = ev.SentAt
	}
	p.conversations[ev.SenderID] = conv
	// A fetch already in flight may predate this message; have the
	// resync loop run one more pass so it cannot be lost.
	if p.resyncInFlight {
		p.resyncDirty = true
	}
	p.mu.Unlock()
}

// ObserveSent records the user's own just-sent message optimistically so
// the list reorders immediately, before any server refresh confirms it.
func (p *Projection) ObserveSent(peerID int64, msg LastMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conv, tracked := p.conversations[peerID]
	if !tracked {
		return
	}

	conv.LastMessage = &msg
	if msg.SentAt.After(conv.LastActivity) {
		conv.LastActivity = msg.SentAt
	}
	p.conversations[peerID] = conv
	if prev, ok := p.pendingSends[peerID]; !ok || msg.SentAt.After(prev) {
		p.pendingSends[peerID] = msg.SentAt
	}
}

// Run consumes the transport subscription until the context ends or the
// event channel closes.
func (p *Projection) Run(ctx context.Context) error {
	if p.transport == nil {
		return fmt.Errorf("chatlist transport is not configured")
	}

	events, err := p.transport.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to chat events: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			p.ApplyEvent(event)
		}
	}
}

// Snapshot returns the visible list, sorted by last activity descending.
func (p *Projection) Snapshot() []Conversation {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Conversation, 0, len(p.conversations))
	for _, conv := range p.conversations {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].PeerUserID > out[j].PeerUserID
	})
	return out
}

// scheduleResync coalesces: one resync runs at a time, and events that
// arrive while it is in flight mark it dirty so exactly one more pass
// follows.
func (p *Projection) scheduleResync() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resyncInFlight {
		p.resyncDirty = true
		return
	}
	p.resyncInFlight = true
	go p.runResync()
}

func (p *Projection) runResync() {
	for {
		p.mu.Lock()
		gen := p.generation
		category := p.category
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		items, nextOffset, hasMore, err := p.fetchAll(ctx, category)
		cancel()

		p.mu.Lock()
		if err != nil {
			if p.log != nil {
				p.log.Warn("chatlist resync failed", zap.Error(err))
			}
			p.resyncInFlight = false
			p.resyncDirty = false
			p.mu.Unlock()
			return
		}

		if p.generation == gen {
			p.conversations = mergeResync(p.conversations, indexByPeer(items), p.pendingSends)
			p.nextOffset = nextOffset
			p.hasMore = hasMore
		}

		// The dirty flag is consumed only after the fetch lands: any
		// event between scheduling and here may postdate the snapshot
		// and gets its own follow-up pass.
		if p.resyncDirty {
			p.resyncDirty = false
			p.mu.Unlock()
			continue
		}
		p.resyncInFlight = false
		p.mu.Unlock()
		return
	}
}

// fetchFrom pulls pages starting at offset until the kept batch is no
// longer sparse or the server runs out.
func (p *Projection) fetchFrom(ctx context.Context, category string, offset int) ([]Conversation, int, bool, error) {
	var collected []Conversation
	hasMore := true
	pages := 0

	for hasMore {
		page, err := p.fetcher.FetchPage(ctx, category, p.pageSize, offset)
		if err != nil {
			return nil, 0, false, fmt.Errorf("fetch conversations page: %w", err)
		}

		collected = append(collected, page...)
		offset += len(page)
		hasMore = len(page) == p.pageSize
		pages++

		if len(collected) >= p.sparseThreshold || pages >= p.maxAutoPages {
			break
		}
	}

	return collected, offset, hasMore, nil
}

// fetchAll pages through the whole category for a resync.
func (p *Projection) fetchAll(ctx context.Context, category string) ([]Conversation, int, bool, error) {
	var collected []Conversation
	offset := 0
	hasMore := true

	for pages := 0; hasMore && pages < maxResyncPages; pages++ {
		page, err := p.fetcher.FetchPage(ctx, category, p.pageSize, offset)
		if err != nil {
			return nil, 0, false, fmt.Errorf("fetch conversations page: %w", err)
		}
		collected = append(collected, page...)
		offset += len(page)
		hasMore = len(page) == p.pageSize
	}

	return collected, offset, hasMore, nil
}

func indexByPeer(items []Conversation) map[int64]Conversation {
	indexed := make(map[int64]Conversation, len(items))
	for _, conv := range items {
		indexed[conv.PeerUserID] = conv
	}
	return indexed
}
