package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"advisy-crm/config"
	"advisy-crm/internal/middleware"
	"advisy-crm/internal/reconcile"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ListPoliciesHandler retourne les polices de l'agence, filtrables par
// client, statut et compagnie.
func ListPoliciesHandler(c *gin.Context) {
	var policies []models.Policy
	var totalRows int64

	query := config.DB.Model(&models.Policy{}).
		Where("agency_id = ?", c.GetUint("agency_id"))
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if company := c.Query("company"); company != "" {
		query = query.Where("LOWER(company_name) LIKE ?", "%"+strings.ToLower(company)+"%")
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de compter les polices"})
		return
	}
	if err := query.Preload("Client").Preload("Product").Scopes(Paginate(c)).
		Order("created_at desc").Find(&policies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les polices"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, policies, totalRows))
}

func GetPolicyHandler(c *gin.Context) {
	var policy models.Policy
	err := config.DB.Preload("Client").Preload("Product").First(&policy, c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Police introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du chargement de la police"})
		return
	}
	c.JSON(http.StatusOK, policy)
}

// UpdatePolicyHandler modifie les champs éditables d'une police. Le détail
// products_data reste figé: il reflète ce que le scan a détecté.
func UpdatePolicyHandler(c *gin.Context) {
	var policy models.Policy
	if err := config.DB.First(&policy, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Police introuvable"})
		return
	}

	var input struct {
		PolicyNumber   string  `json:"policyNumber"`
		Status         string  `json:"status"`
		StartDate      string  `json:"startDate"`
		EndDate        string  `json:"endDate"`
		PremiumMonthly float64 `json:"premiumMonthly"`
		Deductible     float64 `json:"deductible"`
		Notes          string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	policy.PolicyNumber = input.PolicyNumber
	if input.Status != "" {
		policy.Status = input.Status
	}
	policy.StartDate = parseDatePtr(input.StartDate)
	policy.EndDate = parseDatePtr(input.EndDate)
	policy.PremiumMonthly = input.PremiumMonthly
	policy.PremiumYearly = input.PremiumMonthly * 12
	policy.Deductible = input.Deductible
	policy.Notes = input.Notes

	if err := config.DB.Save(&policy).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de mettre à jour la police"})
		return
	}
	c.JSON(http.StatusOK, policy)
}

// TerminatePolicyHandler passe une police en résiliée sans la supprimer:
// l'historique du portefeuille reste consultable.
func TerminatePolicyHandler(c *gin.Context) {
	var policy models.Policy
	if err := config.DB.First(&policy, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Police introuvable"})
		return
	}

	policy.Status = "resilie"
	if err := config.DB.Save(&policy).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de résilier la police"})
		return
	}
	c.JSON(http.StatusOK, policy)
}

// SubmitPolicyHandler crée une police saisie à la main pour un client: le
// chemin mono-contrat, sans passer par un scan. Les produits sont résolus
// dans le catalogue et la franchise suit la règle de priorité LAMal.
func SubmitPolicyHandler(c *gin.Context) {
	var input struct {
		ClientID       uint                        `json:"clientId" binding:"required"`
		CompanyName    string                      `json:"companyName" binding:"required"`
		Products       []reconcile.DetectedProduct `json:"products" binding:"required"`
		LamalFranchise *float64                    `json:"lamalFranchise"`
		PolicyNumber   string                      `json:"policyNumber"`
		StartDate      string                      `json:"startDate"`
		EndDate        string                      `json:"endDate"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}
	if len(input.Products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Au moins un produit est requis"})
		return
	}

	var client models.Client
	if err := config.DB.First(&client, input.ClientID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client introuvable"})
		return
	}

	sess := middleware.SessionFrom(c)
	reconciler := reconcile.NewReconciler(sess, reconcile.NewGormCatalog(config.DB))

	// Tous les produits portent la compagnie du formulaire: une seule
	// police sort de la réconciliation.
	products := make([]reconcile.DetectedProduct, len(input.Products))
	copy(products, input.Products)
	for i := range products {
		products[i].Company = input.CompanyName
		if products[i].PolicyNumber == "" {
			products[i].PolicyNumber = input.PolicyNumber
		}
		if products[i].StartDate == "" {
			products[i].StartDate = input.StartDate
		}
		if products[i].EndDate == "" {
			products[i].EndDate = input.EndDate
		}
	}

	drafts, summary := reconciler.Reconcile(c.Request.Context(), products, reconcile.Options{Kind: reconcile.SetNew})
	if len(drafts) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "Aucun produit n'a pu être résolu",
			"warnings": summary.Warnings,
		})
		return
	}

	draft := drafts[0]
	draft.Deductible = reconcile.ResolveDeductible(products, input.LamalFranchise)
	if err := insertPolicyFromDraft(client.AgencyID, client.ID, draft); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible d'enregistrer la police: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created": summary.Created, "warnings": summary.Warnings})
}

// ExportPoliciesHandler exporte le portefeuille en Excel.
func ExportPoliciesHandler(c *gin.Context) {
	var policies []models.Policy
	query := config.DB.Preload("Client").Preload("Product").
		Where("agency_id = ?", c.GetUint("agency_id")).
		Order("created_at desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&policies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les polices"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Polices"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)

	headers := []string{"ID", "Client", "Compagnie", "Produit", "N° police", "Statut", "Prime mensuelle", "Prime annuelle", "Franchise", "Type"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for row, policy := range policies {
		clientName := ""
		if policy.Client != nil {
			clientName = policy.Client.LastName + " " + policy.Client.FirstName
		}
		productName := ""
		if policy.Product != nil {
			productName = policy.Product.Name
		}
		values := []interface{}{
			policy.ID, clientName, policy.CompanyName, productName, policy.PolicyNumber,
			policy.Status, policy.PremiumMonthly, policy.PremiumYearly, policy.Deductible,
			policy.ProductType,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	fileName := fmt.Sprintf("polices_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}

func DeletePolicyHandler(c *gin.Context) {
	result := config.DB.Where("id = ?", c.Param("id")).Delete(&models.Policy{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer la police"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Police introuvable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Police supprimée"})
}
