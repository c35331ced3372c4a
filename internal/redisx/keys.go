package redisx

import "time"

const (
	// Catalog cache: catalog:product:{product_id} -> product JSON
	KeyCatalogProduct = "catalog:product:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup = 48 * time.Hour
)
