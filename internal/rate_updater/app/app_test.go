package app

import (
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/langowen/ratepresence/deploy/config"
	"github.com/langowen/ratepresence/internal/rate_updater/adapter/presence"
	"github.com/langowen/ratepresence/internal/rate_updater/adapter/presence/discord"
	"github.com/langowen/ratepresence/internal/rate_updater/adapter/storage/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitPublisher(t *testing.T) {
	db, _ := redismock.NewClientMock()
	notifier := redis.NewStorage(db, "rate_updated")

	withToken := config.Discord{
		Token:   "token",
		APIURL:  "http://127.0.0.1:1",
		Timeout: time.Second,
	}

	tests := []struct {
		name       string
		discord    config.Discord
		notifier   *redis.Storage
		wantNil    bool
		wantLen    int
		wantChat   bool
		wantNotify bool
	}{
		{
			name:    "no token and no redis runs fetch and persist only",
			wantNil: true,
		},
		{
			name:     "token only",
			discord:  withToken,
			wantLen:  1,
			wantChat: true,
		},
		{
			name:       "token and redis",
			discord:    withToken,
			notifier:   notifier,
			wantLen:    2,
			wantChat:   true,
			wantNotify: true,
		},
		{
			name:       "redis only",
			notifier:   notifier,
			wantLen:    1,
			wantNotify: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewApp(&config.Config{Discord: tt.discord})

			publisher := a.initPublisher(tt.notifier)

			if tt.wantNil {
				assert.Nil(t, publisher)
				return
			}

			fanout, ok := publisher.(presence.Fanout)
			require.True(t, ok, "expected a fan-out publisher, got %T", publisher)
			require.Len(t, fanout, tt.wantLen)

			var chat, notify bool
			for _, p := range fanout {
				switch p.(type) {
				case *discord.Client:
					chat = true
				case *redis.Storage:
					notify = true
				}
			}
			assert.Equal(t, tt.wantChat, chat)
			assert.Equal(t, tt.wantNotify, notify)
		})
	}
}
