package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moyuchat/persona-ai-platform/internal/chat"
	appconfig "github.com/moyuchat/persona-ai-platform/internal/config"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

func TestNewHistoryStoreDefaultsToMemory(t *testing.T) {
	logger := logging.New("error")
	store := newHistoryStore(&appconfig.Config{}, logger)
	assert.IsType(t, &chat.MemoryHistoryStore{}, store)
}

func TestNewHistoryStorePicksRedisWhenConfigured(t *testing.T) {
	logger := logging.New("error")
	store := newHistoryStore(&appconfig.Config{RedisAddr: "localhost:6379"}, logger)
	assert.IsType(t, &chat.RedisHistoryStore{}, store)
}
