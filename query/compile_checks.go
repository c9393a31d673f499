package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/maskia-arch/esimconnect/core"
)

var (
	_ gocmd.Querier[StatsSnapshotMessage, core.StatsSnapshot] = (*StatsSnapshotQuery)(nil)
	_ gocmd.Querier[GetFulfillmentMessage, FulfillmentView]   = (*GetFulfillmentQuery)(nil)
)
