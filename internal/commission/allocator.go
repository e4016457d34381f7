package commission

import (
	"fmt"

	"advisy-crm/internal/session"
)

// MaxTotalRate est le plafond du cumul des taux sur une commission.
const MaxTotalRate = 100.0

// AgentRates reprend les taux configurés d'un collaborateur tels qu'ils
// sortent de la table users.
type AgentRates struct {
	AgentID   uint
	FirstName string
	LastName  string
	Email     string
	Rate      float64 // commission_rate (taux générique)
	RateLCA   float64 // commission_rate_lca
	RateVIE   float64 // commission_rate_vie
	ManagerID *uint
}

// ManagerRates porte les taux de reversement d'un manager. Un manager n'a
// pas de taux générique: hors LCA/VIE il ne touche rien automatiquement.
type ManagerRates struct {
	AgentID        uint
	FirstName      string
	LastName       string
	ManagerRateLCA float64 // manager_commission_rate_lca
	ManagerRateVIE float64 // manager_commission_rate_vie
}

// Part est une part de commission attribuée à un collaborateur.
type Part struct {
	AgentID   uint
	AgentName string
	Rate      float64
	Amount    float64
	IsManager bool
}

// RejectionReason explique pourquoi un ajout ou une mise à jour n'a pas été
// appliqué. Les refus sont des valeurs, jamais des erreurs: l'appelant
// choisit comment les présenter.
type RejectionReason string

const (
	RejectionNone           RejectionReason = ""
	RejectionDuplicateAgent RejectionReason = "duplicate_agent"
	RejectionZeroRate       RejectionReason = "zero_rate"
	RejectionRateOverflow   RejectionReason = "rate_overflow"
)

// Result décrit l'issue d'un AddPart: les parts effectivement ajoutées
// (agent seul, ou agent + manager) et la raison du refus le cas échéant.
type Result struct {
	Added    []Part
	Rejected RejectionReason
}

func (r Result) Applied() bool { return r.Rejected == RejectionNone }

// Allocator maintient les parts d'une commission en cours de saisie.
// Invariant: la somme des taux ne dépasse jamais MaxTotalRate.
type Allocator struct {
	sess        session.Context
	totalAmount float64
	parts       []Part
}

func NewAllocator(sess session.Context, totalAmount float64) *Allocator {
	return &Allocator{sess: sess, totalAmount: totalAmount}
}

// Restore réinstalle les parts d'un brouillon existant (la saisie est sans
// état côté serveur). Refuse en bloc si une part est dupliquée ou si le
// cumul des taux dépasse le plafond; les montants sont recalculés depuis le
// montant total courant.
func (a *Allocator) Restore(parts []Part) bool {
	seen := make(map[uint]bool, len(parts))
	var sum float64
	for _, p := range parts {
		if seen[p.AgentID] {
			return false
		}
		seen[p.AgentID] = true
		sum += p.Rate
	}
	if sum > MaxTotalRate {
		return false
	}
	a.parts = make([]Part, len(parts))
	copy(a.parts, parts)
	for i := range a.parts {
		a.parts[i].Amount = a.totalAmount * a.parts[i].Rate / 100
	}
	return true
}

// Parts retourne une copie des parts courantes.
func (a *Allocator) Parts() []Part {
	out := make([]Part, len(a.parts))
	copy(out, a.parts)
	return out
}

func (a *Allocator) TotalAmount() float64 { return a.totalAmount }

func (a *Allocator) TotalRate() float64 {
	var sum float64
	for _, p := range a.parts {
		sum += p.Rate
	}
	return sum
}

func (a *Allocator) RemainingRate() float64 { return MaxTotalRate - a.TotalRate() }

func (a *Allocator) hasPart(agentID uint) bool {
	for _, p := range a.parts {
		if p.AgentID == agentID {
			return true
		}
	}
	return false
}

// DefaultRate résout le taux par défaut d'un agent: taux de la catégorie
// courante s'il est renseigné (health→LCA, life→VIE), sinon taux générique.
func (a *Allocator) DefaultRate(agent AgentRates) float64 {
	switch a.sess.CategoryHint {
	case session.CategoryHealth:
		if agent.RateLCA > 0 {
			return agent.RateLCA
		}
	case session.CategoryLife:
		if agent.RateVIE > 0 {
			return agent.RateVIE
		}
	}
	return agent.Rate
}

// managerRate résout le taux de reversement du manager pour la catégorie
// courante. Hors LCA/VIE le taux est nul.
func (a *Allocator) managerRate(m ManagerRates) float64 {
	switch a.sess.CategoryHint {
	case session.CategoryHealth:
		return m.ManagerRateLCA
	case session.CategoryLife:
		return m.ManagerRateVIE
	}
	return 0
}

func agentDisplayName(first, last string) string {
	return fmt.Sprintf("%s %s", first, last)
}

func managerDisplayName(first, last string) string {
	return fmt.Sprintf("%s %s (Manager)", first, last)
}

// AddPart ajoute une part pour l'agent, au taux demandé ou au taux par
// défaut si requestedRate <= 0. Si l'agent a un manager avec un taux de
// reversement non nul pour la catégorie courante, et que les deux taux
// tiennent dans le taux restant, la part manager est ajoutée en même temps.
// Si le cumul agent + manager dépasse le restant, seul l'agent est ajouté.
func (a *Allocator) AddPart(agent AgentRates, manager *ManagerRates, requestedRate float64) Result {
	if a.hasPart(agent.AgentID) {
		return Result{Rejected: RejectionDuplicateAgent}
	}

	rate := requestedRate
	if rate <= 0 {
		rate = a.DefaultRate(agent)
	}
	if rate <= 0 {
		return Result{Rejected: RejectionZeroRate}
	}

	remaining := a.RemainingRate()
	if rate > remaining {
		return Result{Rejected: RejectionRateOverflow}
	}

	added := []Part{{
		AgentID:   agent.AgentID,
		AgentName: agentDisplayName(agent.FirstName, agent.LastName),
		Rate:      rate,
		Amount:    a.totalAmount * rate / 100,
	}}

	if manager != nil && manager.AgentID != agent.AgentID && !a.hasPart(manager.AgentID) {
		mRate := a.managerRate(*manager)
		// Si la part manager ne tient plus dans le restant, on ne garde que
		// l'agent: comportement assumé, pas un oubli.
		if mRate > 0 && rate+mRate <= remaining {
			added = append(added, Part{
				AgentID:   manager.AgentID,
				AgentName: managerDisplayName(manager.FirstName, manager.LastName),
				Rate:      mRate,
				Amount:    a.totalAmount * mRate / 100,
				IsManager: true,
			})
		}
	}

	a.parts = append(a.parts, added...)
	return Result{Added: added}
}

// UpdatePartRate change le taux d'une part existante. Refus silencieux si
// la part n'existe pas ou si le nouveau cumul dépasserait le plafond.
func (a *Allocator) UpdatePartRate(agentID uint, newRate float64) bool {
	idx := -1
	var others float64
	for i, p := range a.parts {
		if p.AgentID == agentID {
			idx = i
			continue
		}
		others += p.Rate
	}
	if idx < 0 || newRate+others > MaxTotalRate {
		return false
	}
	a.parts[idx].Rate = newRate
	a.parts[idx].Amount = a.totalAmount * newRate / 100
	return true
}

// RemovePart retire la part de l'agent. Ne retire pas la part manager
// associée: elle reste tant qu'on ne la retire pas explicitement.
func (a *Allocator) RemovePart(agentID uint) {
	for i, p := range a.parts {
		if p.AgentID == agentID {
			a.parts = append(a.parts[:i], a.parts[i+1:]...)
			return
		}
	}
}

// RecomputeAmounts recalcule les montants après un changement du montant
// total de la commission. Les taux ne bougent pas.
func (a *Allocator) RecomputeAmounts(newTotalAmount float64) {
	a.totalAmount = newTotalAmount
	for i := range a.parts {
		a.parts[i].Amount = newTotalAmount * a.parts[i].Rate / 100
	}
}

// AutoPopulateFromAssignment pré-remplit les parts depuis l'agent attribué
// au client. Ne fait rien si des parts existent déjà. Contrairement à
// AddPart, la part manager n'est pas soumise au contrôle de taux restant:
// ce chemin ne s'exécute que sur une liste vide, où 100% est disponible.
func (a *Allocator) AutoPopulateFromAssignment(agent AgentRates, manager *ManagerRates) []Part {
	if len(a.parts) > 0 {
		return nil
	}

	rate := a.DefaultRate(agent)
	if rate <= 0 {
		return nil
	}

	added := []Part{{
		AgentID:   agent.AgentID,
		AgentName: agentDisplayName(agent.FirstName, agent.LastName),
		Rate:      rate,
		Amount:    a.totalAmount * rate / 100,
	}}

	if manager != nil && manager.AgentID != agent.AgentID {
		if mRate := a.managerRate(*manager); mRate > 0 {
			added = append(added, Part{
				AgentID:   manager.AgentID,
				AgentName: managerDisplayName(manager.FirstName, manager.LastName),
				Rate:      mRate,
				Amount:    a.totalAmount * mRate / 100,
				IsManager: true,
			})
		}
	}

	a.parts = append(a.parts, added...)
	return added
}
