package projection

import (
	"testing"
	"time"

	"github.com/mmeshcher/coffee-order-system/internal/model"
)

func TestBucketOf_Disjoint(t *testing.T) {
	cases := map[model.OrderStatus]Bucket{
		model.OrderStatusPending:   BucketPendingLike,
		model.OrderStatusReady:     BucketPendingLike,
		model.OrderStatusCompleted: BucketCompletedLike,
		model.OrderStatusCancelled: BucketCancelled,
	}

	for status, want := range cases {
		if got := BucketOf(status); got != want {
			t.Fatalf("BucketOf(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestSplit_PreservesOrder(t *testing.T) {
	orders := []model.Order{
		{ID: "a", Status: model.OrderStatusPending},
		{ID: "b", Status: model.OrderStatusCompleted},
		{ID: "c", Status: model.OrderStatusReady},
		{ID: "d", Status: model.OrderStatusCancelled},
		{ID: "e", Status: model.OrderStatusPending},
	}

	buckets := Split(orders)

	pending := buckets[BucketPendingLike]
	if len(pending) != 3 || pending[0].ID != "a" || pending[1].ID != "c" || pending[2].ID != "e" {
		t.Fatalf("pending bucket wrong: %+v", pending)
	}
	if len(buckets[BucketCompletedLike]) != 1 || buckets[BucketCompletedLike][0].ID != "b" {
		t.Fatalf("completed bucket wrong: %+v", buckets[BucketCompletedLike])
	}
	if len(buckets[BucketCancelled]) != 1 || buckets[BucketCancelled][0].ID != "d" {
		t.Fatalf("cancelled bucket wrong: %+v", buckets[BucketCancelled])
	}
}

func TestAutoCompleteDue(t *testing.T) {
	now := time.Now()
	before61 := now.Add(-61 * time.Minute)
	before30 := now.Add(-30 * time.Minute)

	tests := []struct {
		name  string
		order model.Order
		want  bool
	}{
		{
			name:  "ready 61 minutes ago",
			order: model.Order{Status: model.OrderStatusReady, ReadyAt: &before61},
			want:  true,
		},
		{
			name:  "ready 30 minutes ago",
			order: model.Order{Status: model.OrderStatusReady, ReadyAt: &before30},
			want:  false,
		},
		{
			name:  "already promoted",
			order: model.Order{Status: model.OrderStatusReady, ReadyAt: &before61, AutoCompletePending: true},
			want:  false,
		},
		{
			name:  "not ready",
			order: model.Order{Status: model.OrderStatusPending},
			want:  false,
		},
		{
			name:  "ready without timestamp",
			order: model.Order{Status: model.OrderStatusReady},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AutoCompleteDue(tt.order, now); got != tt.want {
				t.Fatalf("AutoCompleteDue = %v, want %v", got, tt.want)
			}
		})
	}
}
