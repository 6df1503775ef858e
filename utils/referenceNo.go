package utils

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	snowflakeNode     *snowflake.Node
	snowflakeNodeOnce sync.Once
)

func node() *snowflake.Node {
	snowflakeNodeOnce.Do(func() {
		n, err := snowflake.NewNode(int64(intFromEnvOr("SNOWFLAKE_NODE_ID", 1) % 1024))
		if err != nil {
			panic(err)
		}
		snowflakeNode = n
	})
	return snowflakeNode
}

// NewReferenceNo returns a time-ordered unique reference for ledger entries and transfers.
func NewReferenceNo(prefix string) string {
	return prefix + node().Generate().String()
}
