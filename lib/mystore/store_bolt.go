package mystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

// OpenBolt opens the single database file that all bolt backed stores of the process share.
func OpenBolt(path string) (*bolt.DB, func(), error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("error opening bolt database %s: %s", path, err)
	}
	return db, func() {
		db.Close()
	}, nil
}

// BoltStore keeps every entity kind in its own bucket, values encoded as json.
type BoltStore[T any] struct {
	db     *bolt.DB
	bucket []byte
}

func NewBoltStore[T any](db *bolt.DB) (*BoltStore[T], func(), error) {
	bucket := []byte(kindOf[T]())

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating bucket %s: %s", bucket, err)
	}

	return &BoltStore[T]{
		db:     db,
		bucket: bucket,
	}, func() {}, nil
}

func (s *BoltStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if s.currentTx(c) != nil {
		return f(c)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return f(context.WithValue(c, ctxTransactionKey{}, tx))
	})
}

func (s *BoltStore[T]) Put(c context.Context, uid string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error encoding entity %s with uid %s: %s", s.bucket, uid, err)
	}

	return s.update(c, func(tx *bolt.Tx) error {
		err := tx.Bucket(s.bucket).Put([]byte(uid), data)
		if err != nil {
			return fmt.Errorf("error storing entity %s with uid %s: %s", s.bucket, uid, err)
		}
		return nil
	})
}

func (s *BoltStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var result T
	found := false

	err := s.view(c, func(tx *bolt.Tx) error {
		data := tx.Bucket(s.bucket).Get([]byte(uid))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return result, false, fmt.Errorf("error fetching entity %s with uid %s: %s", s.bucket, uid, err)
	}

	return result, found, nil
}

func (s *BoltStore[T]) List(c context.Context) ([]T, error) {
	result := []T{}

	err := s.view(c, func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			var value T
			if err := json.Unmarshal(v, &value); err != nil {
				return err
			}
			result = append(result, value)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching all entities %s: %s", s.bucket, err)
	}

	return result, nil
}

func (s *BoltStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}
	return filterAndSort(all, filters, orderByField)
}

// currentTx returns the transaction of this database that is carried by the context, if any.
func (s *BoltStore[T]) currentTx(c context.Context) *bolt.Tx {
	tx, ok := c.Value(ctxTransactionKey{}).(*bolt.Tx)
	if !ok || tx.DB() != s.db {
		return nil
	}
	return tx
}

func (s *BoltStore[T]) update(c context.Context, f func(tx *bolt.Tx) error) error {
	if tx := s.currentTx(c); tx != nil {
		return f(tx)
	}
	return s.db.Update(f)
}

func (s *BoltStore[T]) view(c context.Context, f func(tx *bolt.Tx) error) error {
	if tx := s.currentTx(c); tx != nil {
		return f(tx)
	}
	return s.db.View(f)
}
