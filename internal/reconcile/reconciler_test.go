package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisy-crm/internal/reconcile"
	"advisy-crm/internal/session"
)

// fakeCatalog est un catalogue en mémoire pour les tests du réconciliateur.
type fakeCatalog struct {
	matches    map[string][]reconcile.ProductMatch
	companies  map[string]uint
	nextID     uint
	failCreate bool
	noFallback bool

	createdCompanies []string
	createdProducts  []reconcile.NewProduct
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		matches:   make(map[string][]reconcile.ProductMatch),
		companies: make(map[string]uint),
		nextID:    100,
	}
}

func (f *fakeCatalog) FindProductByAlias(_ context.Context, term, _, _ string) ([]reconcile.ProductMatch, error) {
	return f.matches[term], nil
}

func (f *fakeCatalog) FindCompanyByName(_ context.Context, name string) (uint, bool, error) {
	id, ok := f.companies[name]
	return id, ok, nil
}

func (f *fakeCatalog) CreateCompany(_ context.Context, name string) (uint, error) {
	f.nextID++
	f.companies[name] = f.nextID
	f.createdCompanies = append(f.createdCompanies, name)
	return f.nextID, nil
}

func (f *fakeCatalog) CreateProduct(_ context.Context, p reconcile.NewProduct) (uint, error) {
	if f.failCreate {
		return 0, errors.New("insert failed")
	}
	f.nextID++
	f.createdProducts = append(f.createdProducts, p)
	return f.nextID, nil
}

func (f *fakeCatalog) AnyActiveProduct(_ context.Context) (uint, bool, error) {
	if f.noFallback {
		return 0, false, nil
	}
	return 1, true, nil
}

func newTestReconciler(catalog reconcile.Catalog) *reconcile.Reconciler {
	sess := session.Context{TenantID: 1, UserID: 3, Role: "agent", CategoryHint: session.CategoryHealth}
	r := reconcile.NewReconciler(sess, catalog)
	r.Now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return r
}

func fptr(v float64) *float64 { return &v }

func TestGroupingNormalizesCompanyNames(t *testing.T) {
	r := newTestReconciler(newFakeCatalog())

	drafts, summary := r.Reconcile(context.Background(), []reconcile.DetectedProduct{
		{Company: "AXA", ProductName: "RC Ménage", ProductCategory: "other"},
		{Company: " axa ", ProductName: "Protection juridique", ProductCategory: "other"},
	}, reconcile.Options{Kind: reconcile.SetNew})

	require.Len(t, drafts, 1)
	assert.Equal(t, 2, len(drafts[0].ProductsData))
	assert.Equal(t, "AXA", drafts[0].CompanyName)
	assert.Equal(t, 1, summary.Created)
}

func TestSingleVsMultiProductType(t *testing.T) {
	r := newTestReconciler(newFakeCatalog())

	drafts, _ := r.Reconcile(context.Background(), []reconcile.DetectedProduct{
		{Company: "CSS", ProductName: "LAMal Basic", ProductCategory: "health"},
		{Company: "CSS", ProductName: "LCA Plus", ProductCategory: "health"},
		{Company: "AXA", ProductName: "RC", ProductCategory: "other"},
	}, reconcile.Options{Kind: reconcile.SetNew})

	require.Len(t, drafts, 2)
	assert.Equal(t, reconcile.ProductTypeMulti, drafts[0].ProductType)
	assert.Equal(t, "other", drafts[1].ProductType)
}

func TestPremiumAggregation(t *testing.T) {
	r := newTestReconciler(newFakeCatalog())

	drafts, _ := r.Reconcile(context.Background(), []reconcile.DetectedProduct{
		{Company: "CSS", ProductName: "LAMal Basic", ProductCategory: "health", PremiumMonthly: fptr(120.50)},
		{Company: "CSS", ProductName: "LCA Plus", ProductCategory: "health", PremiumMonthly: fptr(45.00)},
	}, reconcile.Options{Kind: reconcile.SetNew})

	require.Len(t, drafts, 1)
	assert.InDelta(t, 165.50, drafts[0].PremiumMonthly, 1e-9)
	assert.InDelta(t, 1986.00, drafts[0].PremiumYearly, 1e-9)
}

func TestEndToEndScenario(t *testing.T) {
	r := newTestReconciler(newFakeCatalog())

	drafts, summary := r.Reconcile(context.Background(), []reconcile.DetectedProduct{
		{Company: "CSS", ProductName: "LAMal Basic", PremiumMonthly: fptr(320), ProductCategory: "health"},
		{Company: "CSS", ProductName: "LCA Plus", PremiumMonthly: fptr(45), ProductCategory: "health"},
		{Company: "AXA", ProductName: "RC", PremiumMonthly: fptr(15), ProductCategory: "other"},
	}, reconcile.Options{Kind: reconcile.SetNew})

	require.Len(t, drafts, 2)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Skipped)

	css := drafts[0]
	assert.InDelta(t, 365.0, css.PremiumMonthly, 1e-9)
	assert.Equal(t, reconcile.ProductTypeMulti, css.ProductType)
	assert.Len(t, css.ProductsData, 2)

	axa := drafts[1]
	assert.InDelta(t, 15.0, axa.PremiumMonthly, 1e-9)
	assert.Equal(t, "other", axa.ProductType)
}

func TestSkipOnUnresolvableGroup(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.failCreate = true
	catalog.noFallback = true
	catalog.matches["LAMal Basic"] = []reconcile.ProductMatch{{ProductID: 42, ProductName: "LAMal Basic", MatchScore: 1}}
	r := newTestReconciler(catalog)

	drafts, summary := r.Reconcile(context.Background(), []reconcile.DetectedProduct{
		{Company: "CSS", ProductName: "LAMal Basic", ProductCategory: "health"},
		{Company: "Mystère SA", ProductName: "Produit fantôme", ProductCategory: "other"},
	}, reconcile.Options{Kind: reconcile.SetNew})

	require.Len(t, drafts, 1)
	assert.Equal(t, uint(42), drafts[0].ProductID)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "mystère sa")
}

func TestResolutionPrefersHighestScoreThenLowestID(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.matches["LCA Plus"] = []reconcile.ProductMatch{
		{ProductID: 30, ProductName: "LCA Plus Famille", MatchScore: 0.5},
		{ProductID: 21, ProductName: "LCA Plus", MatchScore: 1},
		{ProductID: 12, ProductName: "LCA Plus", MatchScore: 1},
	}
	r := newTestReconciler(catalog)

	id, err := r.ResolveOrCreateProduct(context.Background(), "LCA Plus", "CSS", "health")

	require.NoError(t, err)
	assert.Equal(t, uint(12), id)
}

func TestResolutionCreatesCompanyAndProduct(t *testing.T) {
	catalog := newFakeCatalog()
	r := newTestReconciler(catalog)

	id, err := r.ResolveOrCreateProduct(context.Background(), "RC Ménage", "Nouvelle Cie", "other")

	require.NoError(t, err)
	assert.NotZero(t, id)
	require.Len(t, catalog.createdCompanies, 1)
	assert.Equal(t, "Nouvelle Cie", catalog.createdCompanies[0])
	require.Len(t, catalog.createdProducts, 1)
	created := catalog.createdProducts[0]
	assert.Equal(t, "other", created.Category)
	assert.Equal(t, "base", created.Subcategory)
	assert.Equal(t, reconcile.StatusActive, created.Status)
	assert.Equal(t, reconcile.SourceIAScan, created.Source)
}

func TestResolutionDefaultsCategoryToLAMal(t *testing.T) {
	catalog := newFakeCatalog()
	r := newTestReconciler(catalog)

	_, err := r.ResolveOrCreateProduct(context.Background(), "Base", "CSS", "")

	require.NoError(t, err)
	require.Len(t, catalog.createdProducts, 1)
	assert.Equal(t, "LAMal", catalog.createdProducts[0].Category)
}

func TestResolutionFallsBackToAnyActiveProduct(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.failCreate = true
	r := newTestReconciler(catalog)

	id, err := r.ResolveOrCreateProduct(context.Background(), "Produit fantôme", "CSS", "health")

	require.NoError(t, err)
	assert.Equal(t, uint(1), id)
}

func TestOldSetTerminationMarksPolicies(t *testing.T) {
	r := newTestReconciler(newFakeCatalog())

	drafts, _ := r.Reconcile(context.Background(), []reconcile.DetectedProduct{
		{Company: "CSS", ProductName: "LAMal Basic", ProductCategory: "health"},
		{Company: "CSS", ProductName: "LCA Plus", ProductCategory: "health"},
	}, reconcile.Options{Kind: reconcile.SetOld, Termination: true})

	require.Len(t, drafts, 1)
	assert.Equal(t, reconcile.StatusResilie, drafts[0].Status)
	assert.Contains(t, drafts[0].Notes, "LAMal Basic + LCA Plus")
	assert.Contains(t, drafts[0].Notes, "14.03.2026")
	assert.Contains(t, drafts[0].Notes, "À RÉSILIER")
}

func TestNewSetStaysActive(t *testing.T) {
	r := newTestReconciler(newFakeCatalog())

	drafts, _ := r.Reconcile(context.Background(), []reconcile.DetectedProduct{
		{Company: "CSS", ProductName: "LAMal Basic", ProductCategory: "health"},
	}, reconcile.Options{Kind: reconcile.SetNew, Termination: true})

	require.Len(t, drafts, 1)
	assert.Equal(t, reconcile.StatusActive, drafts[0].Status)
	assert.NotContains(t, drafts[0].Notes, "À RÉSILIER")
}

func TestPolicyFieldsFromFirstMember(t *testing.T) {
	r := newTestReconciler(newFakeCatalog())

	drafts, _ := r.Reconcile(context.Background(), []reconcile.DetectedProduct{
		{Company: "CSS", ProductName: "LAMal Basic", ProductCategory: "health", Franchise: fptr(2500),
			PolicyNumber: "POL-1", StartDate: "2026-01-01", EndDate: "2027-01-01"},
		{Company: "CSS", ProductName: "LCA Plus", ProductCategory: "health", Franchise: fptr(300)},
	}, reconcile.Options{Kind: reconcile.SetNew})

	require.Len(t, drafts, 1)
	assert.Equal(t, 2500.0, drafts[0].Deductible)
	assert.Equal(t, "POL-1", drafts[0].PolicyNumber)
	assert.Equal(t, "2026-01-01", drafts[0].StartDate)
	assert.Equal(t, 1, drafts[0].ProductsData[0].DurationYears)
}

func TestResolveDeductiblePriority(t *testing.T) {
	single := []reconcile.DetectedProduct{
		{ProductName: "RC", ProductCategory: "other", Franchise: fptr(200)},
	}
	multiWithOther := []reconcile.DetectedProduct{
		{ProductName: "LCA Plus", ProductCategory: "health", Franchise: fptr(300)},
		{ProductName: "RC", ProductCategory: "other", Franchise: fptr(200)},
		{ProductName: "Ménage", ProductCategory: "other", Franchise: fptr(500)},
	}

	assert.Equal(t, 200.0, reconcile.ResolveDeductible(single, nil), "produit unique: sa propre franchise")
	assert.Equal(t, 200.0, reconcile.ResolveDeductible(multiWithOther, nil), "multi: franchise du premier produit other")
	assert.Equal(t, 1500.0, reconcile.ResolveDeductible(multiWithOther, fptr(1500)), "la franchise LAMal prime toujours")
	assert.Equal(t, 0.0, reconcile.ResolveDeductible(nil, nil))
}
