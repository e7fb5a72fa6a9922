package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/travel-relation/config"
	"github.com/d60-Lab/travel-relation/internal/cache"
	"github.com/d60-Lab/travel-relation/internal/model"
	"github.com/d60-Lab/travel-relation/internal/repository"
	"github.com/d60-Lab/travel-relation/internal/service"
	"github.com/d60-Lab/travel-relation/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// countingPublisher 只计数，测的是本地投递链路
type countingPublisher struct{ n atomic.Int64 }

func (p *countingPublisher) Publish(context.Context, service.RelationshipEvent) error {
	p.n.Add(1)
	return nil
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	N := envInt("N", 10000)
	CONC := envInt("CONC", 1)

	rels := repository.NewRelationshipRepository(db)
	overlays := repository.NewOverlayRepository(db)
	users := repository.NewUserRepository(db)
	profiles := service.NewProfileService(users, overlays, cache.NopProfileCache{})
	store := service.NewRelationshipStore(rels, profiles, cache.NopFriendCache{}, false)

	pub := &countingPublisher{}
	dispatcher := service.NewEventDispatcher(pub, 2*N)
	stop := dispatcher.Start(8)
	lifecycle := service.NewLifecycleService(rels, store, overlays, profiles, dispatcher, service.LifecycleOptions{})

	ctx := context.Background()

	// u0 是热门用户，其余用户都向 u0 发请求
	hub := model.User{ID: "u0", Username: "u0", Email: "u0@example.com"}
	_ = db.Where("id = ?", hub.ID).FirstOrCreate(&hub).Error
	seed := make([]model.User, N)
	batch := 1000
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		seed[i] = model.User{ID: id, Username: "u" + id[:8], Email: id[:8] + "@example.com"}
		if (i+1)%batch == 0 {
			sub := seed[i+1-batch : i+1]
			_ = db.Create(&sub).Error
		}
	}
	if N%batch != 0 {
		sub := seed[N-N%batch:]
		_ = db.Create(&sub).Error
	}

	landing := make([]time.Duration, 0, 2*N)
	doneLanding := make(chan struct{})
	go func() {
		for {
			select {
			case d := <-dispatcher.Metrics():
				landing = append(landing, d)
			case <-doneLanding:
				return
			}
		}
	}()

	maxQ := 0
	quitSample := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q := dispatcher.QueueLen(); q > maxQ {
					maxQ = q
				}
			case <-quitSample:
				return
			}
		}
	}()

	run := func(op func(i int) error) ([]time.Duration, time.Duration, int64) {
		workers := CONC
		if workers > N {
			workers = N
		}
		feed := make(chan int, N)
		for i := 0; i < N; i++ {
			feed <- i
		}
		close(feed)

		recs := make(chan time.Duration, N)
		var failed atomic.Int64
		done := make(chan struct{}, workers)
		t0 := time.Now()
		for w := 0; w < workers; w++ {
			go func() {
				for i := range feed {
					st := time.Now()
					if err := op(i); err != nil {
						failed.Add(1)
					}
					recs <- time.Since(st)
				}
				done <- struct{}{}
			}()
		}
		for w := 0; w < workers; w++ {
			<-done
		}
		total := time.Since(t0)
		close(recs)
		out := make([]time.Duration, 0, N)
		for d := range recs {
			out = append(out, d)
		}
		return out, total, failed.Load()
	}

	sendRecs, sendDur, sendFailed := run(func(i int) error {
		return lifecycle.SendFriendRequest(ctx, seed[i].ID, seed[i].Username, hub.ID)
	})

	q0 := time.Now()
	incoming := must(store.GetFriendRequests(ctx, hub.ID))
	inboxDur := time.Since(q0)

	// 重复发送全部应被拒绝
	_, dupDur, dupFailed := run(func(i int) error {
		return lifecycle.SendFriendRequest(ctx, seed[i].ID, seed[i].Username, hub.ID)
	})

	acceptRecs, acceptDur, acceptFailed := run(func(i int) error {
		return lifecycle.AcceptFriendRequest(ctx, model.PairID(seed[i].ID, hub.ID), hub.ID, seed[i].ID)
	})
	close(quitSample)

	q1 := time.Now()
	friends := must(store.GetFriends(ctx, hub.ID))
	friendsDur := time.Since(q1)

	q2 := time.Now()
	_ = must(store.GetFriends(ctx, seed[0].ID))
	leafDur := time.Since(q2)

	drainStart := time.Now()
	_ = stop(context.Background())
	drainDur := time.Since(drainStart)
	close(doneLanding)

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 {
			return 0
		}
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}

	fmt.Printf("N=%d, CONC=%d\n", N, CONC)
	fmt.Printf("Send total: %v, per op: %v, p50: %v, p95: %v, p99: %v, failed: %d\n",
		sendDur, sendDur/time.Duration(N), pct(sendRecs, 0.50), pct(sendRecs, 0.95), pct(sendRecs, 0.99), sendFailed)
	fmt.Printf("Duplicate send total: %v, rejected: %d/%d\n", dupDur, dupFailed, N)
	fmt.Printf("Accept total: %v, per op: %v, p50: %v, p95: %v, p99: %v, failed: %d\n",
		acceptDur, acceptDur/time.Duration(N), pct(acceptRecs, 0.50), pct(acceptRecs, 0.95), pct(acceptRecs, 0.99), acceptFailed)
	fmt.Printf("Query incoming(%d) latency: %v\n", len(incoming), inboxDur)
	fmt.Printf("Query friends hub(%d) latency: %v, leaf latency: %v\n", len(friends), friendsDur, leafDur)
	if len(landing) > 0 {
		fmt.Printf("Event landing: published=%d, p50=%v, p95=%v, p99=%v, maxQueue=%d, drain=%v\n",
			pub.n.Load(), pct(landing, 0.50), pct(landing, 0.95), pct(landing, 0.99), maxQ, drainDur)
	}
}
