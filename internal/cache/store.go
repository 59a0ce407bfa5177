package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is the persistent KV backend on top of bbolt.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db         *bolt.DB
	values     []byte
	lists      []byte
	defaultTTL time.Duration
	now        func() time.Time
}

type Options struct {
	// Bucket is the name of the Bolt bucket to use. Lists go to Bucket+".lists".
	Bucket string
	// DefaultTTL is used when Set is called with ttl <= 0.
	DefaultTTL time.Duration
	// Now overrides the clock used for expiration. Defaults to time.Now.
	Now func() time.Time
}

var (
	ErrNotFound   = errors.New("cache: not found")
	ErrExpired    = errors.New("cache: expired")
	ErrNotInteger = errors.New("cache: value is not an integer")
	ErrWrongType  = errors.New("cache: operation against a key holding the wrong kind of value")
)

var _ KV = (*Store)(nil)

// Open initializes or opens a Store at the given path.
func Open(path string, opts Options) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	name := "cache"
	if opts.Bucket != "" {
		name = opts.Bucket
	}
	s := &Store{
		db:         db,
		values:     []byte(name),
		lists:      []byte(name + ".lists"),
		defaultTTL: opts.DefaultTTL,
		now:        opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if err := db.Update(s.createBuckets); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createBuckets(tx *bolt.Tx) error {
	if _, err := tx.CreateBucketIfNotExists(s.values); err != nil {
		return err
	}
	_, err := tx.CreateBucketIfNotExists(s.lists)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Layout: 8 bytes big endian expiresAt (unix nanos, 0 = never) || raw value
func (s *Store) encode(value []byte, ttl time.Duration) []byte {
	expiresAt := int64(0)
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt))
	copy(buf[8:], value)
	return buf
}

func (s *Store) expired(raw []byte) bool {
	expiresAt := int64(binary.BigEndian.Uint64(raw[:8]))
	return expiresAt > 0 && !s.now().Before(time.Unix(0, expiresAt))
}

// live returns the stored record for key if it exists and has not expired.
func (s *Store) live(tx *bolt.Tx, key []byte) []byte {
	v := tx.Bucket(s.values).Get(key)
	if v == nil || s.expired(v) {
		return nil
	}
	return v
}

func (s *Store) put(tx *bolt.Tx, key string, value []byte, ttl time.Duration) error {
	k := []byte(key)
	lists := tx.Bucket(s.lists)
	if lists.Bucket(k) != nil {
		if err := lists.DeleteBucket(k); err != nil {
			return err
		}
	}
	return tx.Bucket(s.values).Put(k, s.encode(value, ttl))
}

// Set stores value with an absolute expiration computed as now+ttl.
// If ttl <= 0, DefaultTTL is used; if DefaultTTL <= 0, the item never expires.
// A list stored under key is replaced.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.put(tx, key, value, ttl)
	})
}

// MSet applies every entry inside a single transaction.
func (s *Store) MSet(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, e := range entries {
			if err := s.put(tx, e.Key, e.Value, e.TTL); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the value if present and not expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		k := []byte(key)
		v := tx.Bucket(s.values).Get(k)
		if v == nil {
			if tx.Bucket(s.lists).Bucket(k) != nil {
				return ErrWrongType
			}
			return ErrNotFound
		}
		if s.expired(v) {
			return ErrExpired
		}
		out = append([]byte(nil), v[8:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Incr keeps the expiration of an existing counter.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		k := []byte(key)
		if tx.Bucket(s.lists).Bucket(k) != nil {
			return ErrWrongType
		}
		header := make([]byte, 8)
		if v := s.live(tx, k); v != nil {
			cur, err := strconv.ParseInt(string(v[8:]), 10, 64)
			if err != nil {
				return ErrNotInteger
			}
			n = cur
			copy(header, v[:8])
		}
		n++
		return tx.Bucket(s.values).Put(k, append(header, strconv.FormatInt(n, 10)...))
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RPush appends to the list at key, creating it when missing.
func (s *Store) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		k := []byte(key)
		if s.live(tx, k) != nil {
			return ErrWrongType
		}
		if err := tx.Bucket(s.values).Delete(k); err != nil {
			return err
		}
		b, err := tx.Bucket(s.lists).CreateBucketIfNotExists(k)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		var id [8]byte
		binary.BigEndian.PutUint64(id[:], seq)
		if err := b.Put(id[:], value); err != nil {
			return err
		}
		// elements are never removed individually, so the sequence is the length
		n = int64(seq)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// LRange reads a slice of the list at key. A missing key is an empty list.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		k := []byte(key)
		b := tx.Bucket(s.lists).Bucket(k)
		if b == nil {
			if s.live(tx, k) != nil {
				return ErrWrongType
			}
			return nil
		}
		var all [][]byte
		if err := b.ForEach(func(_, v []byte) error {
			all = append(all, append([]byte(nil), v...))
			return nil
		}); err != nil {
			return err
		}
		lo, hi, ok := listBounds(int64(len(all)), start, stop)
		if ok {
			out = all[lo : hi+1]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// listBounds resolves redis-style inclusive indices against a list of length n.
func listBounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

// Exists reports whether key holds a live value or a list.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		k := []byte(key)
		ok = s.live(tx, k) != nil || tx.Bucket(s.lists).Bucket(k) != nil
		return nil
	})
	return ok, err
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		k := []byte(key)
		if lists := tx.Bucket(s.lists); lists.Bucket(k) != nil {
			if err := lists.DeleteBucket(k); err != nil {
				return err
			}
		}
		return tx.Bucket(s.values).Delete(k)
	})
}

// FlushAll drops and recreates both buckets.
func (s *Store) FlushAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{s.values, s.lists} {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return s.createBuckets(tx)
	})
}
