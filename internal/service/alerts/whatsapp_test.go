package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	client "github.com/mamadbah2/stockroom/pkg/clients/whatsapp"
)

type stubSender struct {
	sent []client.TextMessage
	err  error
}

func (s *stubSender) SendText(ctx context.Context, msg client.TextMessage) (*client.Receipt, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("missing deadline")
	}
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return nil, s.err
	}
	return &client.Receipt{}, nil
}

func TestLowStockSendsToManager(t *testing.T) {
	sender := &stubSender{}
	n := NewWhatsAppNotifier(sender, "33600000000", nil)

	err := n.LowStock(context.Background(), models.Product{ID: "p1", Name: "Desk Lamp", SKU: "DL-1", Stock: 3})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "33600000000", sender.sent[0].To)
	assert.Equal(t, "Low stock: Desk Lamp (DL-1) has 3 units left.", sender.sent[0].Body)
}

func TestLowStockWrapsFailures(t *testing.T) {
	n := NewWhatsAppNotifier(&stubSender{err: errors.New("rate limited")}, "1", nil)
	err := n.LowStock(context.Background(), models.Product{Name: "Lamp"})
	assert.ErrorContains(t, err, "send low stock alert: rate limited")
}

func TestLowStockMessageOutOfStock(t *testing.T) {
	assert.Equal(t, "Out of stock: Lamp (L-1). Restock needed.", LowStockMessage(models.Product{Name: "Lamp", SKU: "L-1"}))
}
