package notifications

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceOnlineSetKey = "ws:online_users"
	presenceLastSeenNS   = "ws:last_seen:"
	presenceTTL          = 90 * time.Second
	presenceOfflineGrace = 5 * time.Second
)

// Presence mirrors live connection counts into Redis so IsOnline and
// OnlineUserIDs see users connected to any process. A short grace
// window absorbs reconnects before a user is reported offline.
type Presence struct {
	rdb *redis.Client

	mu            sync.RWMutex
	localCounts   map[uint]int
	offlineTimers map[uint]*time.Timer
	grace         time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{
		rdb:           rdb,
		localCounts:   make(map[uint]int),
		offlineTimers: make(map[uint]*time.Timer),
		grace:         presenceOfflineGrace,
		stopCh:        make(chan struct{}),
	}
}

func (p *Presence) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.mu.Lock()
		for userID, timer := range p.offlineTimers {
			timer.Stop()
			delete(p.offlineTimers, userID)
		}
		p.mu.Unlock()
	})
}

// Register records a new connection for the user and refreshes the
// shared presence keys.
func (p *Presence) Register(ctx context.Context, userID uint) {
	p.mu.Lock()
	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
		delete(p.offlineTimers, userID)
	}
	p.localCounts[userID]++
	p.mu.Unlock()

	p.Touch(ctx, userID)
}

// Touch refreshes the user's last-seen marker.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	if err := p.rdb.SAdd(ctx, presenceOnlineSetKey, uid).Err(); err != nil {
		log.Printf("presence SADD failed for user %d: %v", userID, err)
	}
	if err := p.rdb.SetEx(ctx, p.lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), presenceTTL).Err(); err != nil {
		log.Printf("presence SETEX failed for user %d: %v", userID, err)
	}
}

// Unregister drops one connection. When it was the last one, the shared
// keys are cleared after the grace window unless the user reconnects.
func (p *Presence) Unregister(ctx context.Context, userID uint) {
	p.mu.Lock()
	if n, ok := p.localCounts[userID]; ok {
		n--
		if n > 0 {
			p.localCounts[userID] = n
			p.mu.Unlock()
			return
		}
		delete(p.localCounts, userID)
	}

	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
	}
	p.offlineTimers[userID] = time.AfterFunc(p.grace, func() {
		p.finalizeOffline(context.Background(), userID)
	})
	p.mu.Unlock()

	_ = ctx
}

func (p *Presence) finalizeOffline(ctx context.Context, userID uint) {
	p.mu.Lock()
	if p.localCounts[userID] > 0 {
		delete(p.offlineTimers, userID)
		p.mu.Unlock()
		return
	}
	delete(p.offlineTimers, userID)
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	// Another process may still hold connections; its last-seen key
	// keeps the user online.
	exists, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
	if err == nil && exists > 0 {
		return
	}
	_ = p.rdb.SRem(ctx, presenceOnlineSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
}

// IsOnline checks local connections first, then the shared keys.
func (p *Presence) IsOnline(ctx context.Context, userID uint) bool {
	p.mu.RLock()
	if p.localCounts[userID] > 0 {
		p.mu.RUnlock()
		return true
	}
	p.mu.RUnlock()

	if p.rdb == nil {
		return false
	}
	exists, err := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
	return err == nil && exists > 0
}

// OnlineUserIDs returns users online anywhere, filtering entries whose
// last-seen marker has expired.
func (p *Presence) OnlineUserIDs(ctx context.Context) []uint {
	local := p.localUserIDs()
	if p.rdb == nil {
		return local
	}

	members, err := p.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	if err != nil {
		return local
	}

	seen := make(map[uint]struct{}, len(members)+len(local))
	result := make([]uint, 0, len(members)+len(local))

	for _, raw := range members {
		id64, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			continue
		}
		userID := uint(id64)
		exists, existsErr := p.rdb.Exists(ctx, p.lastSeenKey(userID)).Result()
		if existsErr != nil {
			continue
		}
		if exists == 0 {
			_ = p.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		result = append(result, userID)
	}

	for _, userID := range local {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		result = append(result, userID)
	}

	return result
}

func (p *Presence) localUserIDs() []uint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]uint, 0, len(p.localCounts))
	for userID, count := range p.localCounts {
		if count > 0 {
			ids = append(ids, userID)
		}
	}
	return ids
}

func (p *Presence) lastSeenKey(userID uint) string {
	return presenceLastSeenNS + strconv.FormatUint(uint64(userID), 10)
}
