package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"advisy-crm/internal/session"
)

// Statuts et sentinelles réutilisés par la couche persistance.
const (
	StatusActive  = "active"
	StatusResilie = "resilie"

	ProductTypeMulti = "multi"
	SourceIAScan     = "ia_scan"

	unknownCompanyKey = "unknown"
)

// DetectedProduct est un produit extrait par l'IA (ou corrigé à la main)
// dans le dialogue de validation d'un scan.
type DetectedProduct struct {
	Company         string   `json:"company"`
	ProductName     string   `json:"productName"`
	ProductCategory string   `json:"productCategory"`
	PremiumMonthly  *float64 `json:"premiumMonthly,omitempty"`
	Franchise       *float64 `json:"franchise,omitempty"`
	PolicyNumber    string   `json:"policyNumber,omitempty"`
	StartDate       string   `json:"startDate,omitempty"`
	EndDate         string   `json:"endDate,omitempty"`
}

// ProductEntry conserve le détail d'un produit au sein d'un contrat
// multi-produits (colonne products_data).
type ProductEntry struct {
	ProductID     uint    `json:"productId"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Premium       float64 `json:"premium"`
	Deductible    float64 `json:"deductible"`
	DurationYears int     `json:"durationYears"`
}

// PolicyDraft est une police en mémoire, une par compagnie distincte,
// prête à être persistée par l'appelant.
type PolicyDraft struct {
	CompanyName    string
	ProductID      uint
	ProductsData   []ProductEntry
	PremiumMonthly float64
	PremiumYearly  float64
	ProductType    string
	Deductible     float64
	PolicyNumber   string
	StartDate      string
	EndDate        string
	Status         string
	Notes          string
}

// SetKind distingue les anciens contrats (à reprendre ou résilier) des
// nouveaux contrats d'une session de scan.
type SetKind string

const (
	SetOld SetKind = "old"
	SetNew SetKind = "new"
)

// Options pilote une passe de réconciliation.
type Options struct {
	Kind        SetKind
	Termination bool // résiliation détectée: les anciens contrats passent en "resilie"
}

// Summary compte les groupes aboutis et ignorés; l'appelant présente ces
// chiffres plutôt qu'un tout-ou-rien.
type Summary struct {
	Created  int
	Skipped  int
	Warnings []string
}

// Reconciler transforme une liste plate de produits détectés en une
// PolicyDraft par compagnie, en résolvant chaque produit dans le catalogue.
type Reconciler struct {
	sess    session.Context
	catalog Catalog

	// Now est remplaçable dans les tests; la date sert à la ligne de
	// provenance dans les notes.
	Now func() time.Time
}

func NewReconciler(sess session.Context, catalog Catalog) *Reconciler {
	return &Reconciler{sess: sess, catalog: catalog, Now: time.Now}
}

// companyKey normalise le nom de compagnie pour le regroupement.
func companyKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return unknownCompanyKey
	}
	return key
}

type productGroup struct {
	key     string
	display string
	members []DetectedProduct
}

// groupByCompany regroupe les produits par compagnie normalisée, dans
// l'ordre de première apparition, en préservant l'ordre interne.
func groupByCompany(products []DetectedProduct) []productGroup {
	index := make(map[string]int)
	var groups []productGroup
	for _, p := range products {
		key := companyKey(p.Company)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, productGroup{key: key, display: strings.TrimSpace(p.Company)})
		}
		groups[i].members = append(groups[i].members, p)
	}
	return groups
}

// ResolveOrCreateProduct résout un produit du catalogue par recherche
// d'alias, sinon le crée sous la compagnie résolue (elle-même créée au
// besoin). En cas d'échec de création, retombe sur un produit actif
// quelconque: mieux une référence approximative qu'un pipeline bloqué.
// Ne retourne une erreur que si même ce dernier recours est vide.
func (r *Reconciler) ResolveOrCreateProduct(ctx context.Context, productName, companyName, categoryHint string) (uint, error) {
	matches, err := r.catalog.FindProductByAlias(ctx, productName, companyName, categoryHint)
	if err != nil {
		slog.Warn("Recherche d'alias produit en échec, passage en création", "product", productName, "error", err)
	}
	if len(matches) > 0 {
		// Meilleur score d'abord; à score égal, l'ID le plus ancien gagne
		// (ordre d'insertion du catalogue, déterministe).
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].MatchScore != matches[j].MatchScore {
				return matches[i].MatchScore > matches[j].MatchScore
			}
			return matches[i].ProductID < matches[j].ProductID
		})
		return matches[0].ProductID, nil
	}

	display := strings.TrimSpace(companyName)
	if display == "" {
		display = "Inconnue"
	}
	companyID, ok, err := r.catalog.FindCompanyByName(ctx, display)
	if err == nil && !ok {
		companyID, err = r.catalog.CreateCompany(ctx, display)
	}

	if err == nil {
		category := categoryHint
		if category == "" {
			category = "LAMal"
		}
		productID, createErr := r.catalog.CreateProduct(ctx, NewProduct{
			Name:        productName,
			CompanyID:   companyID,
			Category:    category,
			Subcategory: "base",
			Status:      StatusActive,
			Source:      SourceIAScan,
		})
		if createErr == nil {
			return productID, nil
		}
		err = createErr
	}

	slog.Warn("Création produit en échec, repli sur un produit actif", "product", productName, "error", err)
	fallbackID, ok, fbErr := r.catalog.AnyActiveProduct(ctx)
	if fbErr != nil || !ok {
		return 0, fmt.Errorf("produit %q irrésoluble, aucun produit de repli: %w", productName, err)
	}
	return fallbackID, nil
}

// Reconcile construit une PolicyDraft par compagnie. Un groupe dont aucun
// membre n'est résoluble est ignoré avec un avertissement; les autres
// groupes continuent.
func (r *Reconciler) Reconcile(ctx context.Context, products []DetectedProduct, opts Options) ([]PolicyDraft, Summary) {
	var drafts []PolicyDraft
	var summary Summary

	for _, group := range groupByCompany(products) {
		entries := make([]ProductEntry, 0, len(group.members))
		names := make([]string, 0, len(group.members))
		var premiumMonthly float64

		for _, member := range group.members {
			hint := member.ProductCategory
			if hint == "" {
				hint = r.sess.CategoryHint
			}
			productID, err := r.ResolveOrCreateProduct(ctx, member.ProductName, member.Company, hint)
			if err != nil {
				slog.Warn("Produit non résolu dans le groupe", "company", group.key, "product", member.ProductName, "error", err)
				productID = 0
			}
			entries = append(entries, ProductEntry{
				ProductID:     productID,
				Name:          member.ProductName,
				Category:      member.ProductCategory,
				Premium:       floatOrZero(member.PremiumMonthly),
				Deductible:    floatOrZero(member.Franchise),
				DurationYears: durationYears(member.StartDate, member.EndDate),
			})
			names = append(names, member.ProductName)
			premiumMonthly += floatOrZero(member.PremiumMonthly)
		}

		mainProductID := uint(0)
		for _, e := range entries {
			if e.ProductID != 0 {
				mainProductID = e.ProductID
				break
			}
		}
		if mainProductID == 0 {
			summary.Skipped++
			warning := fmt.Sprintf("compagnie %q: aucun produit résoluble, groupe ignoré", group.key)
			summary.Warnings = append(summary.Warnings, warning)
			slog.Warn("Groupe ignoré par la réconciliation", "company", group.key, "products", len(group.members))
			continue
		}

		first := group.members[0]
		draft := PolicyDraft{
			CompanyName:    group.display,
			ProductID:      mainProductID,
			ProductsData:   entries,
			PremiumMonthly: premiumMonthly,
			PremiumYearly:  premiumMonthly * 12,
			ProductType:    groupProductType(group.members, r.sess.CategoryHint),
			Deductible:     floatOrZero(first.Franchise),
			PolicyNumber:   first.PolicyNumber,
			StartDate:      first.StartDate,
			EndDate:        first.EndDate,
			Status:         StatusActive,
			Notes:          r.buildNotes(names, opts),
		}
		if opts.Kind == SetOld && opts.Termination {
			draft.Status = StatusResilie
		}

		drafts = append(drafts, draft)
		summary.Created++
	}

	return drafts, summary
}

// buildNotes concatène les noms de produits, une ligne de provenance datée
// et, pour les anciens contrats sous résiliation, le marqueur À RÉSILIER.
func (r *Reconciler) buildNotes(names []string, opts Options) string {
	var b strings.Builder
	b.WriteString(strings.Join(names, " + "))
	b.WriteString("\nCréé via IA-Scan le ")
	b.WriteString(r.Now().Format("02.01.2006"))
	if opts.Kind == SetOld && opts.Termination {
		b.WriteString("\nÀ RÉSILIER")
	}
	return b.String()
}

func groupProductType(members []DetectedProduct, fallback string) string {
	if len(members) == 1 {
		if members[0].ProductCategory != "" {
			return members[0].ProductCategory
		}
		return fallback
	}
	return ProductTypeMulti
}

// ResolveDeductible applique la règle de priorité de franchise du chemin de
// soumission mono-contrat: la franchise LAMal l'emporte toujours; à défaut,
// pour un contrat multi-produits contenant des produits "other", la
// franchise du premier "other"; sinon celle du premier produit.
func ResolveDeductible(products []DetectedProduct, lamalFranchise *float64) float64 {
	if lamalFranchise != nil {
		return *lamalFranchise
	}
	if len(products) == 0 {
		return 0
	}
	if len(products) > 1 {
		for _, p := range products {
			if p.ProductCategory == session.CategoryOther {
				return floatOrZero(p.Franchise)
			}
		}
	}
	return floatOrZero(products[0].Franchise)
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// durationYears dérive la durée d'un produit de ses dates extraites
// (format 2006-01-02). Zéro quand les dates manquent ou sont incohérentes.
func durationYears(start, end string) int {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return 0
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil || !e.After(s) {
		return 0
	}
	years := 0
	for !s.AddDate(years+1, 0, 0).After(e) {
		years++
	}
	if years == 0 {
		years = 1
	}
	return years
}
