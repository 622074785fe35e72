package contract

// maintaining index keys for querying data in various ways

import (
	"fmt"
	"strconv"
)

// all indexes are split into chunks so a single value never grows unbounded
const maxChunkSize = 2500

func chunkCounterKey(base string) string {
	return base + ":chunks"
}

func chunkKey(base string, chunk int) string {
	return base + ":" + strconv.Itoa(chunk)
}

func getChunkCount(d *diff, base string) (int, error) {
	n, err := getCount(d, chunkCounterKey(base))
	return int(n), err
}

func loadChunk(d *diff, key string) ([]uint64, error) {
	ptr, err := d.Get(key)
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, nil
	}
	ids, err := decodeIDs(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode index %s: %w", key, err)
	}
	return ids, nil
}

// addIDToIndex ensures id exists across all chunks (no duplicates).
func addIDToIndex(d *diff, base string, id uint64) error {
	chunks, err := getChunkCount(d, base)
	if err != nil {
		return err
	}
	for i := 0; i < chunks; i++ {
		key := chunkKey(base, i)
		ids, err := loadChunk(d, key)
		if err != nil {
			return err
		}
		for _, e := range ids {
			if e == id {
				return nil
			}
		}
		if len(ids) < maxChunkSize {
			d.Set(key, encodeIDs(append(ids, id)))
			return nil
		}
	}
	// no space -> open a new chunk
	d.Set(chunkKey(base, chunks), encodeIDs([]uint64{id}))
	setCount(d, chunkCounterKey(base), uint64(chunks+1))
	return nil
}

// getIDsFromIndex collects all IDs across all chunks in insertion order.
func getIDsFromIndex(d *diff, base string) ([]uint64, error) {
	chunks, err := getChunkCount(d, base)
	if err != nil {
		return nil, err
	}
	all := []uint64{}
	for i := 0; i < chunks; i++ {
		ids, err := loadChunk(d, chunkKey(base, i))
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
	}
	return all, nil
}

// indexContains checks all chunks for a specific id.
func indexContains(d *diff, base string, id uint64) (bool, error) {
	ids, err := getIDsFromIndex(d, base)
	if err != nil {
		return false, err
	}
	for _, v := range ids {
		if v == id {
			return true, nil
		}
	}
	return false, nil
}
