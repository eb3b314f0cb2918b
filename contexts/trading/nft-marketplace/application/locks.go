package application

import "emporium/contexts/trading/nft-marketplace/domain/entities"

// FeeLockKey serializes withdrawals against each other.
const FeeLockKey = "fees"

func ListingLockKey(key entities.ListingKey) string {
	return "listing:" + key.String()
}
