package ports

import (
	"context"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
)

// ObjectStore persists contract artifacts under a deterministic key scheme
// and returns the durable URL of the stored object.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
	// Get fetches a stored artifact back, e.g. for re-sending delivery
	// without re-rendering.
	Get(ctx context.Context, key string) ([]byte, error)
}

// EmailMessage is one outbound delivery with an optional attachment.
type EmailMessage struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// EmailSender delivers contract emails. Enabled distinguishes the explicit
// "email disabled" deployment state from a delivery failure.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

// ContractRenderer turns complete contract data into the durable PDF artifact.
type ContractRenderer interface {
	Render(data domain.ContractData) ([]byte, error)
}
