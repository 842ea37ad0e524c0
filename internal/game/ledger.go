package game

import "github.com/tatianab/transit-ace/internal/models"

// Ledger applies option impacts to stats.
type Ledger struct{}

// Apply returns current with the impacts added. Budget and morale are not
// clamped; the infraction count never decreases.
func (Ledger) Apply(current models.UserStats, budgetImpact float64, moraleImpact int, infractionDelta int) models.UserStats {
	return models.UserStats{
		Budget:           current.Budget + budgetImpact,
		Morale:           current.Morale + moraleImpact,
		LegalInfractions: current.LegalInfractions + max(0, infractionDelta),
	}
}
