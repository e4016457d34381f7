package commission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisy-crm/internal/commission"
	"advisy-crm/internal/session"
)

func healthSession() session.Context {
	return session.Context{TenantID: 1, UserID: 7, Role: "agent", CategoryHint: session.CategoryHealth}
}

func agent(id uint, generic, lca, vie float64) commission.AgentRates {
	return commission.AgentRates{
		AgentID:   id,
		FirstName: "Agent",
		LastName:  "Test",
		Rate:      generic,
		RateLCA:   lca,
		RateVIE:   vie,
	}
}

func manager(id uint, lca, vie float64) *commission.ManagerRates {
	return &commission.ManagerRates{
		AgentID:        id,
		FirstName:      "Chef",
		LastName:       "Test",
		ManagerRateLCA: lca,
		ManagerRateVIE: vie,
	}
}

func TestAddPartDefaultRateByCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
		rates    commission.AgentRates
		want     float64
	}{
		{"health uses LCA rate", session.CategoryHealth, agent(1, 10, 25, 30), 25},
		{"life uses VIE rate", session.CategoryLife, agent(1, 10, 25, 30), 30},
		{"other falls back to generic", session.CategoryOther, agent(1, 10, 25, 30), 10},
		{"health without LCA rate falls back to generic", session.CategoryHealth, agent(1, 10, 0, 30), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := healthSession()
			sess.CategoryHint = tt.category
			a := commission.NewAllocator(sess, 1000)

			res := a.AddPart(tt.rates, nil, 0)
			require.True(t, res.Applied())
			require.Len(t, res.Added, 1)
			assert.Equal(t, tt.want, res.Added[0].Rate)
			assert.InDelta(t, 1000*tt.want/100, res.Added[0].Amount, 1e-9)
		})
	}
}

func TestAddPartRejectsDuplicateAgent(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 500)

	require.True(t, a.AddPart(agent(1, 10, 0, 0), nil, 10).Applied())
	res := a.AddPart(agent(1, 10, 0, 0), nil, 5)

	assert.Equal(t, commission.RejectionDuplicateAgent, res.Rejected)
	assert.Len(t, a.Parts(), 1)
}

func TestAddPartRejectsZeroRate(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 500)

	res := a.AddPart(agent(1, 0, 0, 0), nil, 0)

	assert.Equal(t, commission.RejectionZeroRate, res.Rejected)
	assert.Empty(t, a.Parts())
}

func TestAddPartRejectsRateOverflow(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 500)
	require.True(t, a.AddPart(agent(1, 0, 80, 0), nil, 0).Applied())

	res := a.AddPart(agent(2, 0, 25, 0), nil, 0)

	assert.Equal(t, commission.RejectionRateOverflow, res.Rejected)
	assert.Equal(t, 80.0, a.TotalRate())
}

func TestManagerAutoAddGating(t *testing.T) {
	// Restant = 15: l'agent à 10 passe, le manager à 20 ne tient plus.
	a := commission.NewAllocator(healthSession(), 1000)
	require.True(t, a.AddPart(agent(1, 85, 0, 0), nil, 85).Applied())

	res := a.AddPart(agent(2, 10, 0, 0), manager(9, 20, 0), 10)
	require.True(t, res.Applied())
	assert.Len(t, res.Added, 1)
	assert.False(t, res.Added[0].IsManager)

	// Restant = 35: agent 10 + manager 20 = 30 <= 35, les deux passent.
	b := commission.NewAllocator(healthSession(), 1000)
	require.True(t, b.AddPart(agent(1, 65, 0, 0), nil, 65).Applied())

	res = b.AddPart(agent(2, 10, 0, 0), manager(9, 20, 0), 10)
	require.True(t, res.Applied())
	require.Len(t, res.Added, 2)
	assert.True(t, res.Added[1].IsManager)
	assert.Equal(t, 20.0, res.Added[1].Rate)
	assert.Contains(t, res.Added[1].AgentName, "(Manager)")
}

func TestManagerNotDuplicated(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 1000)
	require.True(t, a.AddPart(agent(9, 0, 15, 0), nil, 0).Applied())

	// Le manager (id 9) a déjà une part agent: pas de seconde part.
	res := a.AddPart(agent(2, 0, 10, 0), manager(9, 20, 0), 0)
	require.True(t, res.Applied())
	assert.Len(t, res.Added, 1)
}

func TestRateConservation(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 2000)

	a.AddPart(agent(1, 0, 40, 0), nil, 0)
	a.AddPart(agent(2, 0, 35, 0), manager(9, 30, 0), 0) // manager refusé: 35+30 > 60
	a.AddPart(agent(3, 0, 50, 0), nil, 0)               // refusé: dépasse
	a.UpdatePartRate(1, 60)                             // 60+35 = 95, accepté
	a.UpdatePartRate(2, 70)                             // 70+60 > 100, refusé
	a.RemovePart(1)
	a.AddPart(agent(4, 0, 55, 0), nil, 0)

	assert.LessOrEqual(t, a.TotalRate(), commission.MaxTotalRate)
}

func TestUpdatePartRate(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 1000)
	require.True(t, a.AddPart(agent(1, 0, 40, 0), nil, 0).Applied())
	require.True(t, a.AddPart(agent(2, 0, 30, 0), nil, 0).Applied())

	assert.False(t, a.UpdatePartRate(1, 75), "40→75 dépasserait le plafond avec les 30 de l'autre part")
	assert.False(t, a.UpdatePartRate(99, 10), "part inexistante")
	require.True(t, a.UpdatePartRate(1, 70))

	parts := a.Parts()
	assert.Equal(t, 70.0, parts[0].Rate)
	assert.InDelta(t, 700.0, parts[0].Amount, 1e-9)
}

func TestRemovePartDoesNotCascadeToManager(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 1000)
	res := a.AddPart(agent(2, 0, 10, 0), manager(9, 20, 0), 0)
	require.Len(t, res.Added, 2)

	a.RemovePart(2)

	parts := a.Parts()
	require.Len(t, parts, 1)
	assert.True(t, parts[0].IsManager)
}

func TestRecomputeAmounts(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 1000)
	a.AddPart(agent(1, 0, 40, 0), nil, 0)
	a.AddPart(agent(2, 0, 25, 0), nil, 0)

	a.RecomputeAmounts(2450)

	for _, p := range a.Parts() {
		assert.InDelta(t, 2450*p.Rate/100, p.Amount, 1e-9)
	}
	assert.Equal(t, 2450.0, a.TotalAmount())
}

func TestAutoPopulateFromAssignment(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 1200)

	added := a.AutoPopulateFromAssignment(agent(3, 0, 45, 0), manager(9, 30, 0))

	// Pas de plafond combiné sur ce chemin: liste vide au départ.
	require.Len(t, added, 2)
	assert.Equal(t, 45.0, added[0].Rate)
	assert.Equal(t, 30.0, added[1].Rate)
	assert.True(t, added[1].IsManager)
	assert.InDelta(t, 540.0, added[0].Amount, 1e-9)

	// Deuxième appel: la liste n'est plus vide, aucun effet.
	assert.Nil(t, a.AutoPopulateFromAssignment(agent(4, 0, 20, 0), nil))
	assert.Len(t, a.Parts(), 2)
}

func TestRestoreValidatesInvariant(t *testing.T) {
	a := commission.NewAllocator(healthSession(), 1000)

	ok := a.Restore([]commission.Part{
		{AgentID: 1, Rate: 60},
		{AgentID: 2, Rate: 30},
	})
	require.True(t, ok)
	assert.InDelta(t, 600.0, a.Parts()[0].Amount, 1e-9)

	assert.False(t, a.Restore([]commission.Part{{AgentID: 1, Rate: 60}, {AgentID: 1, Rate: 10}}), "doublon")
	assert.False(t, a.Restore([]commission.Part{{AgentID: 1, Rate: 60}, {AgentID: 2, Rate: 50}}), "plafond")
}

func TestAutoPopulateZeroRateAddsNothing(t *testing.T) {
	sess := healthSession()
	sess.CategoryHint = session.CategoryOther
	a := commission.NewAllocator(sess, 1200)

	added := a.AutoPopulateFromAssignment(agent(3, 0, 45, 0), manager(9, 30, 0))

	assert.Nil(t, added)
	assert.Empty(t, a.Parts())
}
