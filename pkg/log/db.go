// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package log

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Entries are stored in the logs bucket by key. The files
// bucket holds one nested bucket per file name that maps
// the keys of that file's entries to their level.
var (
	bucketLogs  = []byte("logs-v2")
	bucketFiles = []byte("files-v2")
)

const defaultMaxKeys = 100000

// NewDB new log database.
func NewDB(dbPath string, wg *sync.WaitGroup) *DB {
	return &DB{
		dbPath:  dbPath,
		maxKeys: defaultMaxKeys,

		wg:     wg,
		saveWG: &sync.WaitGroup{},
	}
}

// DB log database. Keys are big endian microsecond timestamps,
// entries logged within the same microsecond are moved forward.
type DB struct {
	dbPath  string
	maxKeys int

	db *bolt.DB
	wg *sync.WaitGroup

	// Wait for last log to be saved before losing db.
	saveWG *sync.WaitGroup

	mu      sync.Mutex
	prevKey uint64
	count   int
}

// Init opens the database and closes it when ctx is canceled.
func (logDB *DB) Init(ctx context.Context) error {
	db, err := bolt.Open(logDB.dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("could not open database: %w: %v", err, logDB.dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		logs, err := tx.CreateBucketIfNotExists(bucketLogs)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketFiles); err != nil {
			return err
		}
		if k, _ := logs.Cursor().Last(); k != nil {
			logDB.prevKey = binary.BigEndian.Uint64(k)
		}
		logDB.count = logs.Stats().KeyN
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("could not create buckets: %w", err)
	}

	logDB.db = db

	logDB.wg.Add(1)
	go func() {
		<-ctx.Done()
		logDB.saveWG.Wait()
		db.Close()
		logDB.wg.Done()
	}()

	return nil
}

// SaveLogs saves logs from the logger into the database.
func (logDB *DB) SaveLogs(ctx context.Context, l *Logger) {
	logDB.saveWG.Add(1)
	defer logDB.saveWG.Done()

	feed, cancel := l.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case log, ok := <-feed:
			if !ok {
				return
			}
			if err := logDB.saveLog(log); err != nil {
				fmt.Fprintf(os.Stderr, "could not save log: %v %v\n", log.Msg, err)
			}
		}
	}
}

func (logDB *DB) saveLog(log Log) error {
	value, err := json.Marshal(log)
	if err != nil {
		return err
	}

	logDB.mu.Lock()
	defer logDB.mu.Unlock()

	id := max(uint64(log.Time), logDB.prevKey+1)
	key := encodeKey(id)
	count := logDB.count

	err = logDB.db.Update(func(tx *bolt.Tx) error {
		logs := tx.Bucket(bucketLogs)
		files := tx.Bucket(bucketFiles)
		for ; count >= logDB.maxKeys; count-- {
			if err := pruneOldest(logs, files); err != nil {
				return fmt.Errorf("prune: %w", err)
			}
		}

		if err := logs.Put(key, value); err != nil {
			return err
		}
		count++
		if log.File == "" {
			return nil
		}
		index, err := files.CreateBucketIfNotExists([]byte(log.File))
		if err != nil {
			return err
		}
		return index.Put(key, []byte{byte(log.Level)})
	})
	if err != nil {
		return err
	}
	logDB.prevKey = id
	logDB.count = count
	return nil
}

// pruneOldest deletes the first entry and its file index key.
func pruneOldest(logs, files *bolt.Bucket) error {
	key, value := logs.Cursor().First()
	if key == nil {
		return nil
	}
	var log Log
	if err := json.Unmarshal(value, &log); err == nil && log.File != "" {
		name := []byte(log.File)
		if index := files.Bucket(name); index != nil {
			if err := index.Delete(key); err != nil {
				return err
			}
			if k, _ := index.Cursor().First(); k == nil {
				if err := files.DeleteBucket(name); err != nil {
					return err
				}
			}
		}
	}
	return logs.Delete(key)
}

// Query database query. Nil filters match everything.
type Query struct {
	Levels  []Level
	Sources []string
	Files   []string

	// Only return entries older than Time, zero means now.
	Time  UnixMicro
	Limit int
}

func (q Query) match(log Log) bool {
	return (q.Levels == nil || slices.Contains(q.Levels, log.Level)) &&
		(q.Sources == nil || slices.Contains(q.Sources, log.Src)) &&
		(q.Files == nil || slices.Contains(q.Files, log.File))
}

// start positions c on the newest key older than q.Time.
func (q Query) start(c *bolt.Cursor) []byte {
	if q.Time == 0 {
		k, _ := c.Last()
		return k
	}
	if k, _ := c.Seek(encodeKey(uint64(q.Time))); k == nil {
		k, _ = c.Last()
		return k
	}
	k, _ := c.Prev()
	return k
}

// Query returns matching logs in database, newest first.
// A query for a single file walks that file's index.
func (logDB *DB) Query(q Query) ([]Log, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultMaxKeys
	}

	var logs []Log
	err := logDB.db.View(func(tx *bolt.Tx) error {
		entries := tx.Bucket(bucketLogs)

		c := entries.Cursor()
		if len(q.Files) == 1 {
			index := tx.Bucket(bucketFiles).Bucket([]byte(q.Files[0]))
			if index == nil {
				return nil
			}
			c = index.Cursor()
		}

		for key := q.start(c); key != nil && len(logs) < limit; key, _ = c.Prev() {
			raw := entries.Get(key)
			if raw == nil {
				continue
			}
			var log Log
			if err := json.Unmarshal(raw, &log); err != nil {
				return fmt.Errorf("could not unmarshal log %x: %w", key, err)
			}
			if q.match(log) {
				logs = append(logs, log)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func encodeKey(key uint64) []byte {
	output := make([]byte, 8)
	binary.BigEndian.PutUint64(output, key)
	return output
}
