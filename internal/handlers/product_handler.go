package handlers

import (
	"net/http"
	"strings"

	"advisy-crm/config"
	"advisy-crm/internal/reconcile"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
)

type ProductInput struct {
	Name              string `json:"name" binding:"required"`
	CompanyID         uint   `json:"companyId" binding:"required"`
	Category          string `json:"category"`
	Subcategory       string `json:"subcategory"`
	Status            string `json:"status"`
	Description       string `json:"description"`
	CommissionFormula string `json:"commissionFormula"`
}

func ListProductsHandler(c *gin.Context) {
	var products []models.Product
	var totalRows int64

	query := config.DB.Model(&models.Product{})
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if companyID := c.Query("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if source := c.Query("source"); source != "" {
		query = query.Where("source = ?", source)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de compter les produits"})
		return
	}
	if err := query.Preload("Company").Scopes(Paginate(c)).Order("name").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les produits"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, products, totalRows))
}

// SearchProductAliasHandler expose la recherche d'alias du catalogue, celle
// qu'utilise la réconciliation, pour la saisie assistée côté formulaire.
func SearchProductAliasHandler(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q requis"})
		return
	}

	catalog := reconcile.NewGormCatalog(config.DB)
	matches, err := catalog.FindProductByAlias(c.Request.Context(), term, c.Query("company"), c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recherche en échec"})
		return
	}

	results := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		results = append(results, gin.H{
			"productId":   m.ProductID,
			"productName": m.ProductName,
			"matchScore":  m.MatchScore,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

func GetProductHandler(c *gin.Context) {
	var product models.Product
	if err := config.DB.Preload("Company").First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func CreateProductHandler(c *gin.Context) {
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	product := models.Product{
		Name:              input.Name,
		CompanyID:         input.CompanyID,
		Category:          input.Category,
		Subcategory:       input.Subcategory,
		Status:            input.Status,
		Source:            "manual",
		Description:       input.Description,
		CommissionFormula: input.CommissionFormula,
	}
	if product.Status == "" {
		product.Status = "active"
	}

	if err := config.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer le produit: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, product)
}

func UpdateProductHandler(c *gin.Context) {
	var product models.Product
	if err := config.DB.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	product.Name = input.Name
	product.CompanyID = input.CompanyID
	product.Category = input.Category
	product.Subcategory = input.Subcategory
	if input.Status != "" {
		product.Status = input.Status
	}
	product.Description = input.Description
	product.CommissionFormula = input.CommissionFormula

	if err := config.DB.Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de mettre à jour le produit"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func DeleteProductHandler(c *gin.Context) {
	result := config.DB.Delete(&models.Product{}, c.Param("id"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer le produit"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}
