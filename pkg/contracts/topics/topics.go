package topics

const (
	// Pools
	PoolInitialized = "pool_initialized"

	// Flips
	FlipSettled = "flip_settled"
)
