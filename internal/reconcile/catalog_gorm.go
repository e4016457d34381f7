package reconcile

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"advisy-crm/models"
)

// GormCatalog implémente Catalog sur les tables companies / products.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// FindProductByAlias cherche les produits actifs dont le nom contient le
// terme. Le score est calculé ici: 1.0 pour une égalité exacte, 0.75 pour
// un préfixe, 0.5 pour une sous-chaîne.
func (g *GormCatalog) FindProductByAlias(ctx context.Context, term, companyName, categoryHint string) ([]ProductMatch, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	pattern := "%" + strings.ToLower(term) + "%"
	query := g.db.WithContext(ctx).Model(&models.Product{}).
		Where("products.status = ?", StatusActive).
		Where("LOWER(products.name) LIKE ?", pattern)

	if companyName = strings.TrimSpace(companyName); companyName != "" {
		query = query.Joins("JOIN companies ON companies.id = products.company_id").
			Where("LOWER(companies.name) LIKE ?", "%"+strings.ToLower(companyName)+"%")
	}
	if categoryHint != "" {
		query = query.Where("products.category = ?", categoryHint)
	}

	var rows []models.Product
	if err := query.Order("products.id asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	lowered := strings.ToLower(term)
	matches := make([]ProductMatch, 0, len(rows))
	for _, row := range rows {
		name := strings.ToLower(row.Name)
		score := 0.5
		switch {
		case name == lowered:
			score = 1.0
		case strings.HasPrefix(name, lowered):
			score = 0.75
		}
		matches = append(matches, ProductMatch{ProductID: row.ID, ProductName: row.Name, MatchScore: score})
	}
	return matches, nil
}

func (g *GormCatalog) FindCompanyByName(ctx context.Context, name string) (uint, bool, error) {
	var company models.Company
	err := g.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(name))+"%").
		Order("id asc").
		First(&company).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return company.ID, true, nil
}

func (g *GormCatalog) CreateCompany(ctx context.Context, name string) (uint, error) {
	company := models.Company{
		Name:     name,
		Status:   StatusActive,
		Category: "health",
	}
	if err := g.db.WithContext(ctx).Create(&company).Error; err != nil {
		return 0, err
	}
	return company.ID, nil
}

func (g *GormCatalog) CreateProduct(ctx context.Context, p NewProduct) (uint, error) {
	product := models.Product{
		Name:        p.Name,
		CompanyID:   p.CompanyID,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Status:      p.Status,
		Source:      p.Source,
	}
	if err := g.db.WithContext(ctx).Create(&product).Error; err != nil {
		return 0, err
	}
	return product.ID, nil
}

func (g *GormCatalog) AnyActiveProduct(ctx context.Context) (uint, bool, error) {
	var product models.Product
	err := g.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Order("id asc").
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return product.ID, true, nil
}
