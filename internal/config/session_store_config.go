package config

import (
	"strconv"
	"strings"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type SessionStoreConfig interface {
	GetSessionStore() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type SessionStore struct{}

var _ SessionStoreConfig = SessionStore{}

// GetSessionStore selects where sessions live: "memory" (single instance) or "redis".
func (SessionStore) GetSessionStore() string {
	if strings.ToLower(GetEnv("SESSION_STORE", SessionStoreMemory)) == SessionStoreRedis {
		return SessionStoreRedis
	}
	return SessionStoreMemory
}

func (SessionStore) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (SessionStore) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (SessionStore) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil || db < 0 {
		return 0
	}
	return db
}
