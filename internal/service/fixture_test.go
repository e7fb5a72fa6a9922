package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/travel-relation/internal/cache"
	"github.com/d60-Lab/travel-relation/internal/model"
	"github.com/d60-Lab/travel-relation/internal/repository"
	"github.com/d60-Lab/travel-relation/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []RelationshipEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev RelationshipEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]EventType, len(p.events))
	for i, ev := range p.events {
		res[i] = ev.Type
	}
	return res
}

type fixture struct {
	db        *gorm.DB
	rels      repository.RelationshipRepository
	overlays  repository.OverlayRepository
	profiles  ProfileService
	store     RelationshipStore
	lifecycle LifecycleService
	overlay   OverlayService
	pub       *recordingPublisher
	stop      func(context.Context) error
}

type fixtureOptions struct {
	failOpen     bool
	noCleanup    bool
	profileCache cache.ProfileCache
	friendCache  cache.FriendCache
	// wrap decorates the real relationship repository, e.g. to inject failures
	wrap func(repository.RelationshipRepository) repository.RelationshipRepository
}

func newFixture(t *testing.T, o fixtureOptions) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{db: db, pub: &recordingPublisher{}}
	f.rels = repository.NewRelationshipRepository(db)
	if o.wrap != nil {
		f.rels = o.wrap(f.rels)
	}
	f.overlays = repository.NewOverlayRepository(db)
	f.profiles = NewProfileService(repository.NewUserRepository(db), f.overlays, o.profileCache)
	f.store = NewRelationshipStore(f.rels, f.profiles, o.friendCache, o.failOpen)

	events := NewEventDispatcher(f.pub, 100)
	f.stop = events.Start(2)
	t.Cleanup(func() { _ = f.stop(context.Background()) })

	f.lifecycle = NewLifecycleService(f.rels, f.store, f.overlays, f.profiles, events,
		LifecycleOptions{CleanupOverlaysOnRemove: !o.noCleanup})
	f.overlay = NewOverlayService(f.overlays, f.profiles)
	return f
}

// drain stops the dispatcher so every queued event has been published.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.stop(ctx); err != nil {
		t.Fatalf("stop dispatcher: %v", err)
	}
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	if err := f.lifecycle.SendFriendRequest(ctx, a, a, b); err != nil {
		t.Fatalf("send %s->%s: %v", a, b, err)
	}
	if err := f.lifecycle.AcceptFriendRequest(ctx, model.PairID(a, b), b, a); err != nil {
		t.Fatalf("accept %s->%s: %v", a, b, err)
	}
}

func (f *fixture) countRecords(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.RelationshipRequest{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
