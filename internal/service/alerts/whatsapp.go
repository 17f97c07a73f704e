// Package alerts tells the store manager about products running out.
package alerts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	client "github.com/mamadbah2/stockroom/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// Sender delivers WhatsApp text messages.
type Sender interface {
	SendText(ctx context.Context, msg client.TextMessage) (*client.Receipt, error)
}

// WhatsAppNotifier sends low-stock alerts to a single manager number.
type WhatsAppNotifier struct {
	sender    Sender
	managerID string
	logger    *zap.Logger
}

// NewWhatsAppNotifier wires a notifier for managerID.
func NewWhatsAppNotifier(sender Sender, managerID string, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppNotifier{sender: sender, managerID: managerID, logger: logger}
}

// LowStock reports that p dropped into the warning tier.
func (n *WhatsAppNotifier) LowStock(ctx context.Context, p models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	receipt, err := n.sender.SendText(ctx, client.TextMessage{
		To:   n.managerID,
		Body: LowStockMessage(p),
	})
	if err != nil {
		return fmt.Errorf("send low stock alert: %w", err)
	}
	n.logger.Info("low stock alert sent",
		zap.String("product_id", p.ID),
		zap.Int("stock", p.Stock),
		zap.String("message_id", receipt.MessageID()))
	return nil
}

// LowStockMessage renders the alert text for p.
func LowStockMessage(p models.Product) string {
	if p.Stock == 0 {
		return fmt.Sprintf("Out of stock: %s (%s). Restock needed.", p.Name, p.SKU)
	}
	return fmt.Sprintf("Low stock: %s (%s) has %d units left.", p.Name, p.SKU, p.Stock)
}
