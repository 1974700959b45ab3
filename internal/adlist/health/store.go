// Package health persists a per-source fetch-outcome journal in a bbolt
// database. It is pure observability: nothing in the aggregation pipeline
// reads this journal to make a correctness decision. It exists so an
// operator (or a future report) can see which sources are flaky without
// re-running the whole pipeline.
package health

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"
)

var bucketSources = []byte("sources")

// bucketCreator is the minimal contract needed for creating buckets. It
// matches the method on *bbolt.Tx so it can be passed directly, and also
// allows tests to provide a fake to simulate error paths.
type bucketCreator interface {
	CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error)
}

// bucketDeleter is the minimal contract needed for deleting buckets.
type bucketDeleter interface {
	DeleteBucket(name []byte) error
}

// Outcome describes the last known fetch result for a single source.
type Outcome struct {
	LastAttempt         time.Time
	LastSuccess         time.Time
	ConsecutiveFailures uint32
	LastError           string
}

// Journal records fetch outcomes keyed by a caller-chosen source key (the
// orchestrator uses domain.Source.String(), the "kind:location" form). It
// never influences which entries end up in the merged
// output; merge.Writer falls back to the prior output file for that, not to
// this journal.
type Journal interface {
	RecordSuccess(sourceKey string, at time.Time) error
	RecordFailure(sourceKey string, at time.Time, errMsg string) error
	Get(sourceKey string) (Outcome, bool, error)
	Purge() error
	Close() error
}

// store implements Journal using bbolt.
type store struct {
	db *bbolt.DB
}

// New opens (or creates) a bbolt database at path and ensures the sources
// bucket exists.
func New(path string) (Journal, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error { return ensureBucketsFn(tx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &store{db: db}, nil
}

func (s *store) Close() error { return s.db.Close() }

// RecordSuccess marks sourceKey as having succeeded at 'at', resetting its
// consecutive-failure count and clearing any recorded error.
func (s *store) RecordSuccess(sourceKey string, at time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSources)
		prev, _ := decodeOutcome(b.Get([]byte(sourceKey)))
		prev.LastAttempt = at
		prev.LastSuccess = at
		prev.ConsecutiveFailures = 0
		prev.LastError = ""
		return b.Put([]byte(sourceKey), encodeOutcome(prev))
	})
}

// RecordFailure marks sourceKey as having failed at 'at' with errMsg,
// incrementing its consecutive-failure count.
func (s *store) RecordFailure(sourceKey string, at time.Time, errMsg string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSources)
		prev, _ := decodeOutcome(b.Get([]byte(sourceKey)))
		prev.LastAttempt = at
		prev.ConsecutiveFailures++
		prev.LastError = errMsg
		return b.Put([]byte(sourceKey), encodeOutcome(prev))
	})
}

// Get returns the recorded outcome for sourceKey, if any.
func (s *store) Get(sourceKey string) (out Outcome, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSources)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(sourceKey))
		if v == nil {
			return nil
		}
		decoded, derr := decodeOutcome(v)
		if derr != nil {
			return derr
		}
		out = decoded
		ok = true
		return nil
	})
	return out, ok, err
}

// Purge clears all recorded outcomes.
func (s *store) Purge() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deleteBucketsFn(tx, bucketSources); err != nil {
			return err
		}
		return ensureBucketsFn(tx)
	})
}

// Value encoding: [lastAttempt:8be][lastSuccess:8be][consecutiveFailures:4be][errLen:2be][err bytes]
func encodeOutcome(o Outcome) []byte {
	errBytes := []byte(o.LastError)
	if len(errBytes) > 0xFFFF {
		errBytes = errBytes[:0xFFFF]
	}
	buf := make([]byte, 8+8+4+2+len(errBytes))
	binary.BigEndian.PutUint64(buf[0:8], clampUnix(o.LastAttempt))
	binary.BigEndian.PutUint64(buf[8:16], clampUnix(o.LastSuccess))
	binary.BigEndian.PutUint32(buf[16:20], o.ConsecutiveFailures)
	// #nosec G115 -- errBytes length is truncated to <= 0xFFFF above
	binary.BigEndian.PutUint16(buf[20:22], uint16(len(errBytes)))
	copy(buf[22:], errBytes)
	return buf
}

func decodeOutcome(v []byte) (Outcome, error) {
	var o Outcome
	if len(v) < 22 {
		return o, nil
	}
	o.LastAttempt = unixToTime(binary.BigEndian.Uint64(v[0:8]))
	o.LastSuccess = unixToTime(binary.BigEndian.Uint64(v[8:16]))
	o.ConsecutiveFailures = binary.BigEndian.Uint32(v[16:20])
	el := int(binary.BigEndian.Uint16(v[20:22]))
	if 22+el > len(v) {
		el = len(v) - 22
	}
	o.LastError = string(v[22 : 22+el])
	return o, nil
}

func clampUnix(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	ts := t.Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func unixToTime(u uint64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	if u > math.MaxInt64 {
		u = uint64(math.MaxInt64)
	}
	// #nosec G115 -- u is capped to MaxInt64 above
	return time.Unix(int64(u), 0)
}

// ensureBucketsFn creates all required buckets. Kept as a var for test seams.
var ensureBucketsFn = ensureBuckets

func ensureBuckets(tx bucketCreator) error {
	_, err := tx.CreateBucketIfNotExists(bucketSources)
	return err
}

// deleteBucketsFn removes the provided buckets, ignoring ErrBucketNotFound.
var deleteBucketsFn = deleteBuckets

func deleteBuckets(tx bucketDeleter, names ...[]byte) error {
	for _, n := range names {
		if err := tx.DeleteBucket(n); err != nil {
			if errors.Is(err, bberrors.ErrBucketNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}
