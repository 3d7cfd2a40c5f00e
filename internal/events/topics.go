package events

const (
	TopicInventorySnapshot = "inventory.snapshot.built"
	TopicCalculation       = "pricing.calculation.completed"
	TopicPurchaseConfirmed = "pricing.purchase.confirmed"
)

// PartitionKey keeps every event of one snapshot or merchant on one partition.
func PartitionKey(id string) []byte { return []byte(id) }
