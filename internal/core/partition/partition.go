package partition

import "hash/fnv"

// Count is the fixed number of logical partitions of the weighted_means table.
// Changing it moves every principal to a new partition_id, so it is fixed at deployment.
const Count = 256

// For returns the partition ID for a principal.
// Same principalID always maps to the same partition (FNV-32a).
func For(principalID string) int {
	h := fnv.New32a()
	h.Write([]byte(principalID))
	return int(h.Sum32() % Count)
}
