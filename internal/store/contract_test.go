package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
)

func record(ts, phone string) models.SubmissionRecord {
	ev := models.InboundEvent{Timestamp: ts, Phone: phone, Name: "Ana", Inquiry: "loan"}
	return models.NewSubmissionRecord(ev, []byte(fmt.Sprintf(`{"timestamp":%q,"phone":%q,"name":"Ana","inquiry":"loan"}`, ts, phone)))
}

func unique(prefix string) string {
	return fmt.Sprintf("%s %d", prefix, time.Now().UnixNano())
}

// runStoreContract exercises the first-writer-wins contract against any backend.
func runStoreContract(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("first create wins, second sees existing", func(t *testing.T) {
		rec := record(unique("2024-01-01 10:00"), "+15551234567")

		got, err := st.Create(ctx, rec)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if got != Created {
			t.Fatalf("expected created got %s", got)
		}

		got, err = st.Create(ctx, rec)
		if err != nil {
			t.Fatalf("second create: %v", err)
		}
		if got != AlreadyExists {
			t.Fatalf("expected already_exists got %s", got)
		}
	})

	t.Run("distinct keys are independent", func(t *testing.T) {
		ts := unique("t")
		for _, phone := range []string{"+15550000001", "+15550000002"} {
			got, err := st.Create(ctx, record(ts, phone))
			if err != nil {
				t.Fatalf("create %s: %v", phone, err)
			}
			if got != Created {
				t.Fatalf("expected created for %s got %s", phone, got)
			}
		}
	})

	t.Run("concurrent creates have exactly one winner", func(t *testing.T) {
		rec := record(unique("race"), "+15559999999")

		const n = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
			exists  int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := st.Create(ctx, rec)
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				switch got {
				case Created:
					created++
				case AlreadyExists:
					exists++
				}
			}()
		}
		wg.Wait()

		if created != 1 || exists != n-1 {
			t.Fatalf("expected 1 created and %d existing, got %d and %d", n-1, created, exists)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := st.Ping(ctx); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})
}
