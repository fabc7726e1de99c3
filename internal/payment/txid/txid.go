// Package txid mints time-ordered transaction ids.
package txid

import (
	"fmt"

	"github.com/bwmarrin/snowflake"

	id "alumnireg/pkg/domain"
)

// Generator issues "TXN-<snowflake>" ids. Ids are unique per node without
// relying on randomness, so every server instance needs its own node number.
type Generator struct {
	node *snowflake.Node
}

// New returns a generator for node (0..1023).
func New(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

func (g *Generator) Next() id.TransactionID {
	return id.NewTransactionID(g.node.Generate().Int64())
}
