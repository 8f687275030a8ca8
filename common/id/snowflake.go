// Package id issues the time-ordered ids used for chat messages.
package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets up the process-wide node. Each gateway replica needs its own
// NODE_ID. Only the first call has an effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			err = fmt.Errorf("snowflake node %d: %w", nodeID, err)
		}
	})
	return err
}

// NewString returns a new id in base-10 form. Init must have succeeded.
func NewString() string {
	return node.Generate().String()
}
