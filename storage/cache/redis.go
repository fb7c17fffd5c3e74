package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
)

const draftKeyPrefix = "masomo:draft:"

// NewClient connects to the configured Redis server and pings it.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", conf.Redis.Addr)
	}
	return client, nil
}

// draftStore keeps drafts as JSON values; every save pushes the expiry back by `ttl`,
// so abandoned wizards disappear on their own.
type draftStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ paymentplan.DraftStore = (*draftStore)(nil)

func NewDraftStore(client redis.Cmdable, ttl time.Duration) paymentplan.DraftStore {
	return &draftStore{client: client, ttl: ttl}
}

func draftKey(id string) string { return draftKeyPrefix + id }

func (store *draftStore) GetDraft(ctx context.Context, id string) (paymentplan.Draft, error) {
	data, err := store.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return paymentplan.Draft{}, paymentplan.ErrDraftNotFound
		}
		return paymentplan.Draft{}, errors.Wrap(err, "getting draft")
	}

	var d paymentplan.Draft
	if err = json.Unmarshal(data, &d); err != nil {
		return paymentplan.Draft{}, errors.Wrap(err, fmt.Sprintf("decoding draft %s", id))
	}
	return d, nil
}

func (store *draftStore) SaveDraft(ctx context.Context, draft paymentplan.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	return errors.Wrap(store.client.Set(ctx, draftKey(draft.ID), data, store.ttl).Err(), "setting draft")
}

func (store *draftStore) DeleteDraft(ctx context.Context, id string) error {
	n, err := store.client.Del(ctx, draftKey(id)).Result()
	if err != nil {
		return errors.Wrap(err, "deleting draft")
	}
	if n == 0 {
		return paymentplan.ErrDraftNotFound
	}
	return nil
}
