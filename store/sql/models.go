package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	eventStatusCompleted = "completed"
	eventStatusFailed    = "failed"
)

type fulfillmentEventRecord struct {
	bun.BaseModel `bun:"table:fulfillment_events,alias:fe"`

	ID            string    `bun:"id,pk"`
	EventKey      string    `bun:"event_key,notnull"`
	ProductCode   string    `bun:"product_code,notnull"`
	Quantity      int       `bun:"quantity,notnull"`
	ArtifactCount int       `bun:"artifact_count,notnull"`
	Status        string    `bun:"status,notnull"`
	ErrorCode     string    `bun:"error_code"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
