package model

import (
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in migration order.
var Models = []interface{}{
	&User{}, &Blog{}, &BlogLike{}, &AuditEvent{}, &RequestLog{},
}

var idNode atomic.Pointer[snowflake.Node]

// InitIDGenerator sets the snowflake node used for new primary keys. Each
// running instance needs a distinct nodeID in [0, 1023].
func InitIDGenerator(nodeID int64) error {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	idNode.Store(node)
	return nil
}

func GenerateID() uint {
	node := idNode.Load()
	if node == nil {
		fallback, _ := snowflake.NewNode(0)
		idNode.CompareAndSwap(nil, fallback)
		node = idNode.Load()
	}
	return uint(node.Generate())
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}
