package store

import (
	"context"
	"encoding/json"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
)

// DefaultCollection is the Firestore collection holding submissions.
const DefaultCollection = "submissions"

// FirestoreStore keeps one document per dedup key.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, errors.New("GCP_PROJECT required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

// Create stores the full payload plus a server-assigned receivedAt.
// DocumentRef.Create fails with AlreadyExists when the document is present.
func (f *FirestoreStore) Create(ctx context.Context, rec models.SubmissionRecord) (Outcome, error) {
	doc := map[string]any{}
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &doc); err != nil {
			return 0, storeError(err, "decode payload", rec.Key)
		}
	}
	doc["timestamp"] = rec.Event.Timestamp
	doc["phone"] = rec.Event.Phone
	doc["name"] = rec.Event.Name
	doc["inquiry"] = rec.Event.Inquiry
	doc["receivedAt"] = firestore.ServerTimestamp

	_, err := f.client.Collection(f.collection).Doc(rec.Key).Create(ctx, doc)
	if err == nil {
		return Created, nil
	}
	if status.Code(err) == codes.AlreadyExists {
		return AlreadyExists, nil
	}
	return 0, storeError(err, "create document", rec.Key)
}

// Ping reads a sentinel document; NotFound still proves connectivity.
func (f *FirestoreStore) Ping(ctx context.Context) error {
	_, err := f.client.Collection(f.collection).Doc("_ping").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}
