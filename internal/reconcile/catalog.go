package reconcile

import "context"

// ProductMatch est un résultat de recherche dans le catalogue produits.
type ProductMatch struct {
	ProductID   uint
	ProductName string
	MatchScore  float64
}

// NewProduct décrit une entrée produit à créer dans le catalogue.
type NewProduct struct {
	Name        string
	CompanyID   uint
	Category    string
	Subcategory string
	Status      string
	Source      string
}

// Catalog est la vue du réconciliateur sur le référentiel compagnies /
// produits. L'implémentation GORM vit dans catalog_gorm.go; les tests
// utilisent un faux en mémoire.
type Catalog interface {
	// FindProductByAlias cherche un produit par nom (filtres compagnie et
	// catégorie optionnels) et retourne les correspondances avec leur score.
	FindProductByAlias(ctx context.Context, term, companyName, categoryHint string) ([]ProductMatch, error)

	// FindCompanyByName résout une compagnie par sous-chaîne insensible à la
	// casse. ok vaut false si aucune compagnie ne correspond.
	FindCompanyByName(ctx context.Context, name string) (id uint, ok bool, err error)

	CreateCompany(ctx context.Context, name string) (uint, error)

	CreateProduct(ctx context.Context, p NewProduct) (uint, error)

	// AnyActiveProduct retourne un produit actif quelconque, utilisé en
	// dernier recours quand la création échoue.
	AnyActiveProduct(ctx context.Context) (id uint, ok bool, err error)
}
