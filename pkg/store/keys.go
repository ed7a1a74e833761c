package store

import (
	"strconv"

	"github.com/rollkit/bridge/types"
)

const (
	blockPrefix   = "b"
	resultPrefix  = "r"
	ledgerPrefix  = "l"
	orderedPrefix = "o"
	indexPrefix   = "i"
	metaPrefix    = "m"
	heightPrefix  = "t"
	latestLIKey   = "L"
)

func getBlockKey(number uint64) string {
	return GenerateKey([]string{blockPrefix, strconv.FormatUint(number, 10)})
}

func getResultKey(number uint64) string {
	return GenerateKey([]string{resultPrefix, strconv.FormatUint(number, 10)})
}

func getLedgerInfoKey(number uint64) string {
	return GenerateKey([]string{ledgerPrefix, strconv.FormatUint(number, 10)})
}

func getLatestLedgerInfoKey() string {
	return GenerateKey([]string{latestLIKey})
}

func getOrderedPrefix() string {
	return GenerateKey([]string{orderedPrefix})
}

func getOrderedKey(number uint64) string {
	return GenerateKey([]string{orderedPrefix, strconv.FormatUint(number, 10)})
}

func getIndexKey(id types.Hash) string {
	return GenerateKey([]string{indexPrefix, id.String()})
}

func getMetaKey(key string) string {
	return GenerateKey([]string{metaPrefix, key})
}

func getHeightKey() string {
	return GenerateKey([]string{heightPrefix})
}
