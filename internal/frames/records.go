package frames

import (
	"time"

	"framed/internal/store"
)

// FileState tracks the lifecycle of one generated image file. A nil expiry
// means the frame is generated but not yet served and still owned by the
// pregeneration queue; a set expiry means it was served and becomes eligible
// for deletion once the expiry elapses.
type FileState struct {
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Served reports whether the frame has been handed to a client.
func (f FileState) Served() bool {
	return f.ExpiresAt != nil
}

// Expired reports whether the frame is eligible for cleanup at the given time.
func (f FileState) Expired(now time.Time) bool {
	return f.ExpiresAt != nil && !now.Before(*f.ExpiresAt)
}

// Answer is the secret ground truth paired with a frame id. Expiry semantics
// match FileState; the two records transition in lockstep but are stored
// independently and can diverge transiently or after a crash.
type Answer struct {
	Season    int        `json:"season"`
	Episode   int        `json:"episode"`
	SeekTime  float64    `json:"seekTime"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Expired reports whether the answer is eligible for cleanup at the given time.
func (a Answer) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

// Interaction records one served frame within a player run.
type Interaction struct {
	ImageID string    `json:"imageId"`
	Guess   string    `json:"guess"`
	Correct bool      `json:"correct"`
	At      time.Time `json:"at"`
}

// Run represents one player session. Runs whose history reaches the retention
// threshold are archived instead of deleted when they expire.
type Run struct {
	History   []Interaction `json:"history"`
	ExpiresAt *time.Time    `json:"expiresAt"`
}

// Expired reports whether the run should be swept. A run with no expiry at all
// is treated as expired: only the serving path sets expiries, and a run it no
// longer refreshes is abandoned.
func (r Run) Expired(now time.Time) bool {
	return r.ExpiresAt == nil || !now.Before(*r.ExpiresAt)
}

// Item is the pregeneration queue payload for frames.
type Item struct {
	ImageID string `json:"imageId"`
}

// Stores bundles the typed record views over the four namespaces.
type Stores struct {
	Answers *store.Records[Answer]
	States  *store.Records[FileState]
	Runs    *store.Records[Run]
	Archive *store.Records[Run]
}

// NewStores builds typed record views over a state database.
func NewStores(st *store.Store) *Stores {
	return &Stores{
		Answers: store.NewRecords[Answer](st.Namespace(store.NamespaceAnswer)),
		States:  store.NewRecords[FileState](st.Namespace(store.NamespaceFrameState)),
		Runs:    store.NewRecords[Run](st.Namespace(store.NamespaceRunState)),
		Archive: store.NewRecords[Run](st.Namespace(store.NamespaceArchive)),
	}
}
