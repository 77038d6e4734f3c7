package discord

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/langowen/ratepresence/internal/entities"
	"github.com/pkg/errors"
)

const (
	// maxNickLength is the longest guild nickname Discord accepts.
	maxNickLength = 32
	// guildPageLimit is the largest page /users/@me/guilds returns.
	guildPageLimit = 200
)

type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client sets the bot's nickname in every guild it belongs to.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bot "+token).
		SetHeader("User-Agent", "DiscordBot (https://github.com/langowen/ratepresence, 1.0)")

	return &Client{client: client}
}

// Guilds lists every guild the bot belongs to, following the id cursor page by page.
func (c *Client) Guilds(ctx context.Context) ([]Guild, error) {
	const op = "discord.Guilds"

	var (
		guilds []Guild
		after  string
	)
	for {
		var page []Guild
		req := c.client.R().
			SetContext(ctx).
			SetQueryParam("limit", strconv.Itoa(guildPageLimit)).
			SetResult(&page).
			SetError(&apiError{})
		if after != "" {
			req.SetQueryParam("after", after)
		}

		resp, err := req.Get("/users/@me/guilds")
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		if !resp.IsSuccess() {
			return nil, errors.Wrap(responseError(resp), op)
		}

		guilds = append(guilds, page...)
		if len(page) < guildPageLimit {
			return guilds, nil
		}
		after = page[len(page)-1].ID
	}
}

func (c *Client) SetNickname(ctx context.Context, guildID, nick string) error {
	const op = "discord.SetNickname"

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("guildID", guildID).
		SetBody(map[string]string{"nick": truncate(nick, maxNickLength)}).
		SetError(&apiError{}).
		Patch("/guilds/{guildID}/members/@me")
	if err != nil {
		return errors.Wrap(err, op)
	}
	if !resp.IsSuccess() {
		return errors.Wrap(responseError(resp), op)
	}

	return nil
}

// Publish applies the label as nickname in each guild. A guild that rejects it
// does not stop the others; all rejections are returned together.
func (c *Client) Publish(ctx context.Context, label string) error {
	const op = "discord.Publish"

	guilds, err := c.Guilds(ctx)
	if err != nil {
		return errors.Wrap(entities.Mark(entities.ErrPublish, err), op)
	}

	var errs []error
	for _, g := range guilds {
		if err := c.SetNickname(ctx, g.ID, label); err != nil {
			slog.Warn("TIP: bot has no roles or roles do not have the correct permissions",
				"guild", g.Name, "guild_id", g.ID, "error", err)
			errs = append(errs, errors.Wrapf(err, "guild %s", g.ID))
		}
	}

	if len(errs) > 0 {
		return errors.Wrap(entities.Mark(entities.ErrPublish, stderrors.Join(errs...)), op)
	}

	return nil
}

func responseError(resp *resty.Response) error {
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Message != "" {
		return fmt.Errorf("status %d: %s (code %d)", resp.StatusCode(), apiErr.Message, apiErr.Code)
	}
	return fmt.Errorf("status %d", resp.StatusCode())
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
