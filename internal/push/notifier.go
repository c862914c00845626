package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
)

// Notifier turns billing-cycle outcomes into web push notices for the
// lease's tenant. It satisfies the cycle runner's notifier contract; all
// delivery failures are logged here and never surface into the cycle.
type Notifier struct {
	service *Service
	push    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, pushStore *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: service,
		push:    pushStore,
		logger:  logger,
	}
}

// LeaseOverdue notifies the tenant that their balance has aged past due.
func (n *Notifier) LeaseOverdue(lease model.Lease, snap model.AgingSnapshot) {
	amount := snap.OverdueCents()
	n.notifyTenant(lease, Payload{
		Title: "Rent overdue",
		Body:  fmt.Sprintf("Your balance of %s is past due", dollars(amount)),
		URL:   "/charges",
		Tag:   fmt.Sprintf("overdue-%d", lease.ID),
	})
}

// FeeApplied notifies the tenant a late fee was assessed for the period.
func (n *Notifier) FeeApplied(lease model.Lease, amountCents int64, period string) {
	n.notifyTenant(lease, Payload{
		Title: "Late fee applied",
		Body:  fmt.Sprintf("A late fee of %s was added to your account", dollars(amountCents)),
		URL:   "/charges",
		Tag:   fmt.Sprintf("latefee-%d-%s", lease.ID, period),
	})
}

func (n *Notifier) notifyTenant(lease model.Lease, payload Payload) {
	if !n.service.Configured() || lease.TenantID == nil {
		return
	}

	subs, err := n.push.ListByUser(*lease.TenantID)
	if err != nil {
		n.logger.Error("list push subscriptions", "lease_id", lease.ID, "error", err)
		return
	}

	for _, sub := range subs {
		if err := n.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				n.push.DeleteByEndpoint(sub.Endpoint)
			} else {
				n.logger.Warn("send push notice", "lease_id", lease.ID, "error", err)
			}
		}
	}
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
