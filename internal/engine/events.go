package engine

// Identity carries the Telegram account behind an update. The username is
// display-only; every decision keys on the numeric id.
type Identity struct {
	ID       int64
	Username string
}

// BroadcastReport summarizes a broadcast fan-out. Failed deliveries never
// abort the run; the report carries the split.
type BroadcastReport struct {
	Attempted int
	Delivered int
	Failed    int
}
