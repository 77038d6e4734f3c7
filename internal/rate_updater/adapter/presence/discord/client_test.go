package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/langowen/ratepresence/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscord struct {
	mu         sync.Mutex
	guilds     []Guild
	nicks      map[string]string
	denied     map[string]bool
	authSeen   string
	guildPages int
}

// page serves guilds ordered by id after the cursor, like the real endpoint.
func (f *fakeDiscord) page(after string, limit int) []Guild {
	start := 0
	if after != "" {
		for i, g := range f.guilds {
			if g.ID == after {
				start = i + 1
				break
			}
		}
	}

	end := min(start+limit, len(f.guilds))
	return f.guilds[start:end]
}

func (f *fakeDiscord) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 200
		}

		f.mu.Lock()
		f.authSeen = r.Header.Get("Authorization")
		f.guildPages++
		page := f.page(r.URL.Query().Get("after"), limit)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	})

	mux.HandleFunc("PATCH /guilds/{id}/members/@me", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if f.denied[id] {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Missing Permissions","code":50013}`))
			return
		}

		var body struct {
			Nick string `json:"nick"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.nicks[id] = body.Nick
		f.mu.Unlock()

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	return mux
}

func newFake(t *testing.T, denied ...string) (*fakeDiscord, *Client) {
	t.Helper()

	return newFakeWithGuilds(t, []Guild{{ID: "1", Name: "alpha"}, {ID: "2", Name: "beta"}}, denied...)
}

func newFakeWithGuilds(t *testing.T, guilds []Guild, denied ...string) (*fakeDiscord, *Client) {
	t.Helper()

	f := &fakeDiscord{guilds: guilds, nicks: map[string]string{}, denied: map[string]bool{}}
	for _, id := range denied {
		f.denied[id] = true
	}

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	return f, NewClient(srv.URL, "token", time.Second)
}

func TestPublish_SetsNicknameEverywhere(t *testing.T) {
	f, client := newFake(t)

	err := client.Publish(context.Background(), "$ 4684.67 ( ↑ )")
	require.NoError(t, err)

	assert.Equal(t, "Bot token", f.authSeen)
	assert.Equal(t, map[string]string{"1": "$ 4684.67 ( ↑ )", "2": "$ 4684.67 ( ↑ )"}, f.nicks)
}

func TestPublish_FollowsGuildPages(t *testing.T) {
	guilds := make([]Guild, guildPageLimit+1)
	for i := range guilds {
		guilds[i] = Guild{ID: fmt.Sprintf("%04d", i+1), Name: fmt.Sprintf("guild-%d", i+1)}
	}
	f, client := newFakeWithGuilds(t, guilds)

	err := client.Publish(context.Background(), "$ 2.00 ( ↗ )")
	require.NoError(t, err)

	assert.Equal(t, 2, f.guildPages)
	assert.Len(t, f.nicks, len(guilds))
	assert.Equal(t, "$ 2.00 ( ↗ )", f.nicks["0201"])
}

func TestGuilds_SinglePage(t *testing.T) {
	f, client := newFake(t)

	guilds, err := client.Guilds(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Guild{{ID: "1", Name: "alpha"}, {ID: "2", Name: "beta"}}, guilds)
	assert.Equal(t, 1, f.guildPages)
}

func TestPublish_PermissionErrorDoesNotStopOtherGuilds(t *testing.T) {
	f, client := newFake(t, "1")

	err := client.Publish(context.Background(), "$ 1.00 ( = )")

	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrPublish)
	assert.Contains(t, err.Error(), "Missing Permissions")
	assert.Equal(t, map[string]string{"2": "$ 1.00 ( = )"}, f.nicks)
}

func TestPublish_GuildListFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"401: Unauthorized","code":0}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "bad", time.Second).Publish(context.Background(), "label")

	assert.ErrorIs(t, err, entities.ErrPublish)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", maxNickLength))
	assert.Equal(t, "↑↑", truncate("↑↑↑", 2))
}
