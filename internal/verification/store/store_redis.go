package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"alumnireg/internal/verification/models"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
)

const (
	recordKeyPrefix  = "verification:record:"
	emailKeyPrefix   = "verification:email:"
	contactKeyPrefix = "verification:contact:"

	// maxTxRetries bounds optimistic WATCH retries under contention.
	maxTxRetries = 5
)

// RedisStore keeps each record as JSON under its id plus one index key per
// identifier. All three keys share the record's TTL. Mutations run inside
// WATCH/MULTI so concurrent verify attempts cannot lose an increment.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a store whose records expire ttl after issuance.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func recordKey(recordID id.VerificationID) string { return recordKeyPrefix + recordID.String() }
func emailKey(email id.Email) string              { return emailKeyPrefix + email.String() }
func contactKey(contact id.ContactNumber) string  { return contactKeyPrefix + contact.String() }

func (s *RedisStore) Replace(ctx context.Context, rec *models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal verification record: %w", err)
	}
	eKey, cKey := emailKey(rec.Email), contactKey(rec.ContactNumber)

	return s.retry(ctx, func(tx *redis.Tx) error {
		olds, err := s.candidates(ctx, tx, rec.Email, rec.ContactNumber)
		if err != nil {
			return err
		}
		stale, err := s.staleIndexes(ctx, tx, olds, eKey, cKey)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, old := range olds {
				pipe.Del(ctx, recordKey(old.ID))
			}
			for _, key := range stale {
				pipe.Del(ctx, key)
			}
			pipe.Set(ctx, recordKey(rec.ID), payload, s.ttl)
			pipe.Set(ctx, eKey, rec.ID.String(), s.ttl)
			pipe.Set(ctx, cKey, rec.ID.String(), s.ttl)
			return nil
		})
		return err
	}, eKey, cKey)
}

func (s *RedisStore) FindByIdentity(ctx context.Context, email id.Email, contact id.ContactNumber) (*models.Record, error) {
	var found *models.Record
	err := s.retry(ctx, func(tx *redis.Tx) error {
		recs, err := s.candidates(ctx, tx, email, contact)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return sentinel.ErrNotFound
		}
		found = recs[0]
		return nil
	}, emailKey(email), contactKey(contact))
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *RedisStore) Execute(ctx context.Context, email id.Email, contact id.ContactNumber, fn AttemptFunc) error {
	var fnErr error
	err := s.retry(ctx, func(tx *redis.Tx) error {
		recs, err := s.candidates(ctx, tx, email, contact)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return sentinel.ErrNotFound
		}
		working := *recs[0]
		action, callErr := fn(&working)
		fnErr = callErr

		switch action {
		case models.ActionSave:
			payload, err := json.Marshal(&working)
			if err != nil {
				return fmt.Errorf("marshal verification record: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, recordKey(working.ID), payload, redis.KeepTTL)
				return nil
			})
			return err
		case models.ActionDelete:
			return s.deleteInTx(ctx, tx, &working)
		}
		return nil
	}, emailKey(email), contactKey(contact))
	if err != nil {
		return err
	}
	return fnErr
}

func (s *RedisStore) Delete(ctx context.Context, recordID id.VerificationID) error {
	return s.retry(ctx, func(tx *redis.Tx) error {
		rec, err := s.load(ctx, tx, recordID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Watch(ctx, emailKey(rec.Email), contactKey(rec.ContactNumber)).Err(); err != nil {
			return err
		}
		return s.deleteInTx(ctx, tx, rec)
	}, recordKey(recordID))
}

// retry runs fn under WATCH on keys, retrying when another client touched a
// watched key first.
func (s *RedisStore) retry(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("verification record contended: %w", sentinel.ErrConflict)
}

// candidates loads the records referenced by the email and contact indexes,
// watching each record key. The record indexed by email comes first.
func (s *RedisStore) candidates(ctx context.Context, tx *redis.Tx, email id.Email, contact id.ContactNumber) ([]*models.Record, error) {
	var out []*models.Record
	seen := make(map[id.VerificationID]bool, 2)
	for _, key := range []string{emailKey(email), contactKey(contact)} {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read verification index: %w", err)
		}
		recordID, err := id.ParseVerificationID(raw)
		if err != nil || seen[recordID] {
			continue
		}
		seen[recordID] = true
		rec, err := s.load(ctx, tx, recordID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) load(ctx context.Context, tx *redis.Tx, recordID id.VerificationID) (*models.Record, error) {
	key := recordKey(recordID)
	if err := tx.Watch(ctx, key).Err(); err != nil {
		return nil, err
	}
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read verification record: %w", err)
	}
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode verification record: %w", err)
	}
	return &rec, nil
}

// staleIndexes returns the index keys of olds that still point at them and are
// not about to be overwritten.
func (s *RedisStore) staleIndexes(ctx context.Context, tx *redis.Tx, olds []*models.Record, keep ...string) ([]string, error) {
	var out []string
	for _, old := range olds {
		for _, key := range []string{emailKey(old.Email), contactKey(old.ContactNumber)} {
			if slices.Contains(keep, key) {
				continue
			}
			if err := tx.Watch(ctx, key).Err(); err != nil {
				return nil, err
			}
			current, err := tx.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read verification index: %w", err)
			}
			if current == old.ID.String() {
				out = append(out, key)
			}
		}
	}
	return out, nil
}

func (s *RedisStore) deleteInTx(ctx context.Context, tx *redis.Tx, rec *models.Record) error {
	stale, err := s.staleIndexes(ctx, tx, []*models.Record{rec})
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey(rec.ID))
		for _, key := range stale {
			pipe.Del(ctx, key)
		}
		return nil
	})
	return err
}
