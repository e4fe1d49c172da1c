package burnindex

import (
	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/sstable"
)

// Block-interval property over the key family tag. Every key maps to
// [tag, tag+1), so a prefix scan over one family can skip sstable blocks that
// hold only other families. A delete and the key it shadows share a tag, so
// filtering never resurrects a deleted key.

const familyBlockPropertyName = "burnindex.family.interval"

type familyIntervalMapper struct{}

var _ sstable.IntervalMapper = familyIntervalMapper{}

func (familyIntervalMapper) MapPointKey(key pebble.InternalKey, _ []byte) (sstable.BlockInterval, error) {
	uk := key.UserKey
	if len(uk) == 0 {
		return sstable.BlockInterval{}, nil
	}
	tag := uint64(uk[0])
	return sstable.BlockInterval{Lower: tag, Upper: tag + 1}, nil
}

func (familyIntervalMapper) MapRangeKeys(_ sstable.Span) (sstable.BlockInterval, error) {
	return sstable.BlockInterval{}, nil
}

func newFamilyBlockCollector() pebble.BlockPropertyCollector {
	return sstable.NewBlockIntervalCollector(familyBlockPropertyName, familyIntervalMapper{}, nil)
}

// familyFilterFor returns a filter admitting only blocks that may hold keys
// of prefix's family, or nil for an empty prefix.
func familyFilterFor(prefix []byte) pebble.BlockPropertyFilter {
	if len(prefix) == 0 {
		return nil
	}
	tag := uint64(prefix[0])
	return sstable.NewBlockIntervalFilter(familyBlockPropertyName, tag, tag+1, nil)
}
