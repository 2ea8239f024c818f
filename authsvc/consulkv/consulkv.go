// Package consulkv stores sessions in the Consul KV store so that several
// gateway instances can share them.
package consulkv

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	consul "github.com/hashicorp/consul/api"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/sony/gobreaker"
)

const (
	keyPrefix = "gtdweb/sessions/"

	// casAttempts bounds the retries of a read-modify-write that keeps
	// losing to concurrent writers of the same session.
	casAttempts = 5
)

var ErrConflict = errors.New("session record changed concurrently")

// KV is the subset of *consul.KV used by the store.
type KV interface {
	Get(key string, q *consul.QueryOptions) (*consul.KVPair, *consul.QueryMeta, error)
	Put(p *consul.KVPair, q *consul.WriteOptions) (*consul.WriteMeta, error)
	CAS(p *consul.KVPair, q *consul.WriteOptions) (bool, *consul.WriteMeta, error)
	Delete(key string, w *consul.WriteOptions) (*consul.WriteMeta, error)
}

type record struct {
	Session authsvc.Session `json:"session"`
	Flashes []authsvc.Flash `json:"flashes,omitempty"`
}

type store struct {
	kv       KV
	cb       *gobreaker.CircuitBreaker
	lifetime time.Duration
	now      func() time.Time
}

func NewStore(c *consul.Client, lifetime time.Duration) authsvc.SessionStore {
	return NewKVStore(c.KV(), lifetime)
}

func NewKVStore(kv KV, lifetime time.Duration) authsvc.SessionStore {
	return &store{
		kv: kv,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "SessionStore",
			Timeout: 30 * time.Second,
		}),
		lifetime: lifetime,
		now:      time.Now,
	}
}

func (s *store) Create(ctx context.Context, userID uint64, username string) (authsvc.Session, error) {
	if userID == 0 {
		return authsvc.Session{}, authsvc.ErrInvalidArgument
	}

	rec := record{
		Session: authsvc.Session{
			Token:     authsvc.NewToken(),
			UserID:    userID,
			Username:  username,
			ExpiresAt: s.now().Add(s.lifetime),
		},
	}
	if err := s.put(ctx, rec); err != nil {
		return authsvc.Session{}, err
	}

	return rec.Session, nil
}

func (s *store) Get(ctx context.Context, token string) (authsvc.Session, error) {
	rec, _, err := s.get(ctx, token)
	if err != nil {
		return authsvc.Session{}, err
	}

	return rec.Session, nil
}

func (s *store) Destroy(ctx context.Context, token string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return s.kv.Delete(keyPrefix+token, writeOptions(ctx))
	})

	return err
}

func (s *store) AddFlash(ctx context.Context, token string, f authsvc.Flash) error {
	_, err := s.update(ctx, token, func(rec *record) bool {
		rec.Flashes = append(rec.Flashes, f)
		return true
	})

	return err
}

func (s *store) PopFlashes(ctx context.Context, token string) ([]authsvc.Flash, error) {
	var flashes []authsvc.Flash
	_, err := s.update(ctx, token, func(rec *record) bool {
		flashes = rec.Flashes
		rec.Flashes = nil
		return len(flashes) > 0
	})
	if err != nil {
		return nil, err
	}

	return flashes, nil
}

// update applies fn to the stored record and writes it back with a
// check-and-set on the index it was read at. A record deleted in between
// is never written again. fn reports whether there is anything to write.
func (s *store) update(ctx context.Context, token string, fn func(*record) bool) (record, error) {
	for i := 0; i < casAttempts; i++ {
		rec, index, err := s.get(ctx, token)
		if err != nil {
			return record{}, err
		}
		if !fn(&rec) {
			return rec, nil
		}

		ok, err := s.cas(ctx, rec, index)
		if err != nil {
			return record{}, err
		}
		if ok {
			return rec, nil
		}
	}

	return record{}, ErrConflict
}

func (s *store) get(ctx context.Context, token string) (record, uint64, error) {
	if token == "" {
		return record{}, 0, authsvc.ErrSessionNotFound
	}

	v, err := s.cb.Execute(func() (interface{}, error) {
		kv, _, err := s.kv.Get(keyPrefix+token, (&consul.QueryOptions{}).WithContext(ctx))
		return kv, err
	})
	if err != nil {
		return record{}, 0, err
	}

	kv, _ := v.(*consul.KVPair)
	if kv == nil {
		return record{}, 0, authsvc.ErrSessionNotFound
	}

	var rec record
	if err := json.Unmarshal(kv.Value, &rec); err != nil {
		return record{}, 0, err
	}

	if rec.Session.Expired(s.now()) {
		if err := s.Destroy(ctx, token); err != nil {
			return record{}, 0, err
		}
		return record{}, 0, authsvc.ErrSessionNotFound
	}

	return rec, kv.ModifyIndex, nil
}

func (s *store) put(ctx context.Context, rec record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		p := &consul.KVPair{Key: keyPrefix + rec.Session.Token, Value: value}
		return s.kv.Put(p, writeOptions(ctx))
	})

	return err
}

func (s *store) cas(ctx context.Context, rec record, index uint64) (bool, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}

	v, err := s.cb.Execute(func() (interface{}, error) {
		p := &consul.KVPair{Key: keyPrefix + rec.Session.Token, Value: value, ModifyIndex: index}
		ok, _, err := s.kv.CAS(p, writeOptions(ctx))
		return ok, err
	})
	if err != nil {
		return false, err
	}

	ok, _ := v.(bool)
	return ok, nil
}

func writeOptions(ctx context.Context) *consul.WriteOptions {
	return (&consul.WriteOptions{}).WithContext(ctx)
}
