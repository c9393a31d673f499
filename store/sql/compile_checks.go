package sqlstore

var (
	_ SnapshotSource = (*FulfillmentEventStore)(nil)
	_ SnapshotSource = (*CachedSnapshotStore)(nil)
)
