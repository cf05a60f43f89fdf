package orders

const (
	TopicOrderPlaced   = "order.placed"
	TopicAssetStockLow = "asset.stock.low"
)

// Partition key = order_ref so every event for one order keeps its order.
func PartitionKey(orderRef string) []byte { return []byte(orderRef) }
