package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ResetFulfillmentMessage] = (*ResetFulfillmentCommand)(nil)
	_ gocmd.Commander[FlushStatsMessage]       = (*FlushStatsCommand)(nil)
)
