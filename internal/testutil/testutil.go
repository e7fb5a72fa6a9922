// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/travel-relation/internal/model"
)

// NewDB opens an in-memory sqlite database with the relationship schema.
// The pool is pinned to one connection so every query sees the same database.
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.RelationshipRequest{}, &model.ProfileOverlay{}); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis starts a miniredis server and returns a client bound to it.
func NewRedis(tb testing.TB) (*redis.Client, *miniredis.Miniredis) {
	tb.Helper()
	mr := miniredis.RunT(tb)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// SeedUsers inserts users keyed by id with the given usernames.
func SeedUsers(tb testing.TB, db *gorm.DB, users map[string]string) {
	tb.Helper()
	for id, name := range users {
		if err := db.Create(&model.User{ID: id, Username: name, Email: id + "@example.com"}).Error; err != nil {
			tb.Fatalf("seed user %s: %v", id, err)
		}
	}
}
