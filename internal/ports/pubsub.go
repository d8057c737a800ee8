package ports

// Pubsub is the part of the real-time transport the container manages.
type Pubsub interface {
	AutoPubsub() bool
	SetAutoPubsub(enabled bool)
}
