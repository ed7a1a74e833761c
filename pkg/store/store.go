package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"

	"github.com/rollkit/bridge/types"
)

// DefaultStore is a default store implementation.
type DefaultStore struct {
	db ds.Batching
}

var _ Store = &DefaultStore{}

// New returns new, default store.
func New(ds ds.Batching) Store {
	return &DefaultStore{
		db: ds,
	}
}

// Close safely closes underlying data storage, to ensure that data is actually saved.
func (s *DefaultStore) Close() error {
	return s.db.Close()
}

// Height returns the number of the highest committed block, or 0 for an empty store.
func (s *DefaultStore) Height(ctx context.Context) (uint64, error) {
	heightBytes, err := s.db.Get(ctx, ds.NewKey(getHeightKey()))
	if errors.Is(err, ds.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load height: %w", err)
	}
	return decodeHeight(heightBytes)
}

// SaveCommitted stores a committed batch in a single datastore batch.
func (s *DefaultStore) SaveCommitted(ctx context.Context, blocks []*types.Block, results []*types.ExecutionResult, li *types.LedgerInfoWithSignatures) error {
	if len(blocks) == 0 {
		return errors.New("no blocks to save")
	}
	current, err := s.Height(ctx)
	if err != nil {
		return err
	}

	batch, err := s.db.Batch(ctx)
	if err != nil {
		return fmt.Errorf("failed to create a new batch: %w", err)
	}

	for i, block := range blocks {
		blob, err := block.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal block %d to binary: %w", block.Number(), err)
		}
		if err := batch.Put(ctx, ds.NewKey(getBlockKey(block.Number())), blob); err != nil {
			return fmt.Errorf("failed to put block blob in batch: %w", err)
		}
		if err := batch.Put(ctx, ds.NewKey(getIndexKey(block.ID())), encodeHeight(block.Number())); err != nil {
			return fmt.Errorf("failed to put index key in batch: %w", err)
		}
		if err := batch.Delete(ctx, ds.NewKey(getOrderedKey(block.Number()))); err != nil {
			return fmt.Errorf("failed to delete ordered block in batch: %w", err)
		}
		if i < len(results) && results[i] != nil {
			resBlob, err := results[i].MarshalBinary()
			if err != nil {
				return fmt.Errorf("failed to marshal result %d to binary: %w", block.Number(), err)
			}
			if err := batch.Put(ctx, ds.NewKey(getResultKey(block.Number())), resBlob); err != nil {
				return fmt.Errorf("failed to put result blob in batch: %w", err)
			}
		}
	}

	last := blocks[len(blocks)-1].Number()
	if li != nil {
		liBlob, err := li.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal ledger info to binary: %w", err)
		}
		if err := batch.Put(ctx, ds.NewKey(getLedgerInfoKey(last)), liBlob); err != nil {
			return fmt.Errorf("failed to put ledger info in batch: %w", err)
		}
		if err := batch.Put(ctx, ds.NewKey(getLatestLedgerInfoKey()), liBlob); err != nil {
			return fmt.Errorf("failed to put latest ledger info in batch: %w", err)
		}
	}
	if last > current {
		if err := batch.Put(ctx, ds.NewKey(getHeightKey()), encodeHeight(last)); err != nil {
			return fmt.Errorf("failed to put height in batch: %w", err)
		}
	}

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetBlock returns the committed block at number, or error if it's not found in Store.
func (s *DefaultStore) GetBlock(ctx context.Context, number uint64) (*types.Block, error) {
	blob, err := s.db.Get(ctx, ds.NewKey(getBlockKey(number)))
	if err != nil {
		return nil, fmt.Errorf("failed to load block %d: %w", number, err)
	}
	block := new(types.Block)
	if err := block.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}
	return block, nil
}

// GetBlockByID returns the committed block with the given id, or error if it's not found in Store.
func (s *DefaultStore) GetBlockByID(ctx context.Context, id types.Hash) (*types.Block, error) {
	heightBytes, err := s.db.Get(ctx, ds.NewKey(getIndexKey(id)))
	if err != nil {
		return nil, fmt.Errorf("failed to load number of block %s: %w", id, err)
	}
	number, err := decodeHeight(heightBytes)
	if err != nil {
		return nil, err
	}
	return s.GetBlock(ctx, number)
}

// GetResult returns the stored execution result of the block at number.
func (s *DefaultStore) GetResult(ctx context.Context, number uint64) (*types.ExecutionResult, error) {
	blob, err := s.db.Get(ctx, ds.NewKey(getResultKey(number)))
	if err != nil {
		return nil, fmt.Errorf("failed to load result %d: %w", number, err)
	}
	res := new(types.ExecutionResult)
	if err := res.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return res, nil
}

// GetLedgerInfo returns the certificate stored for the block at number.
func (s *DefaultStore) GetLedgerInfo(ctx context.Context, number uint64) (*types.LedgerInfoWithSignatures, error) {
	return s.loadLedgerInfo(ctx, getLedgerInfoKey(number))
}

// LatestLedgerInfo returns the last stored certificate.
func (s *DefaultStore) LatestLedgerInfo(ctx context.Context) (*types.LedgerInfoWithSignatures, error) {
	return s.loadLedgerInfo(ctx, getLatestLedgerInfoKey())
}

func (s *DefaultStore) loadLedgerInfo(ctx context.Context, key string) (*types.LedgerInfoWithSignatures, error) {
	blob, err := s.db.Get(ctx, ds.NewKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger info: %w", err)
	}
	li := new(types.LedgerInfoWithSignatures)
	if err := li.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger info: %w", err)
	}
	return li, nil
}

// SaveOrdered records an ordered block so it can be replayed after a restart.
func (s *DefaultStore) SaveOrdered(ctx context.Context, parentID types.Hash, block *types.Block) error {
	blob, err := cbor.Marshal(OrderedRecord{ParentID: parentID, Block: block})
	if err != nil {
		return fmt.Errorf("failed to marshal ordered block: %w", err)
	}
	return s.db.Put(ctx, ds.NewKey(getOrderedKey(block.Number())), blob)
}

// OrderedBlocks returns the stored ordered blocks above the committed height.
func (s *DefaultStore) OrderedBlocks(ctx context.Context) ([]OrderedRecord, error) {
	height, err := s.Height(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.db.Query(ctx, dsq.Query{Prefix: getOrderedPrefix()})
	if err != nil {
		return nil, fmt.Errorf("failed to query ordered blocks: %w", err)
	}
	entries, err := results.Rest()
	if err != nil {
		return nil, fmt.Errorf("failed to read ordered blocks: %w", err)
	}

	records := make([]OrderedRecord, 0, len(entries))
	for _, entry := range entries {
		var rec OrderedRecord
		if err := cbor.Unmarshal(entry.Value, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ordered block %s: %w", entry.Key, err)
		}
		if rec.Block == nil || rec.Block.Number() <= height {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Block.Number() < records[j].Block.Number() })
	return records, nil
}

// SetMetadata saves arbitrary value in the store.
func (s *DefaultStore) SetMetadata(ctx context.Context, key string, value []byte) error {
	err := s.db.Put(ctx, ds.NewKey(getMetaKey(key)), value)
	if err != nil {
		return fmt.Errorf("failed to set metadata for key '%s': %w", key, err)
	}
	return nil
}

// GetMetadata returns values stored for given key with SetMetadata.
func (s *DefaultStore) GetMetadata(ctx context.Context, key string) ([]byte, error) {
	data, err := s.db.Get(ctx, ds.NewKey(getMetaKey(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for key '%s': %w", key, err)
	}
	return data, nil
}

func encodeHeight(height uint64) []byte {
	heightBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(heightBytes, height)
	return heightBytes
}

func decodeHeight(heightBytes []byte) (uint64, error) {
	if len(heightBytes) != 8 {
		return 0, fmt.Errorf("invalid height length: %d (expected 8)", len(heightBytes))
	}
	return binary.LittleEndian.Uint64(heightBytes), nil
}
