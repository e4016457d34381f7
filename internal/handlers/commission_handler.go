package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"advisy-crm/config"
	"advisy-crm/internal/commission"
	"advisy-crm/internal/middleware"
	"advisy-crm/models"

	"github.com/Knetic/govaluate"
	"github.com/divan/num2words"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// PartPayload est la représentation d'une part côté formulaire.
type PartPayload struct {
	AgentID   uint    `json:"agentId"`
	AgentName string  `json:"agentName"`
	Rate      float64 `json:"rate"`
	Amount    float64 `json:"amount"`
	IsManager bool    `json:"isManager"`
}

// AllocatorState est l'état de saisie transmis à chaque opération: la
// répartition vit dans le formulaire, le serveur rejoue le moteur dessus.
type AllocatorState struct {
	Category    string        `json:"category"`
	TotalAmount float64       `json:"totalAmount"`
	Parts       []PartPayload `json:"parts"`
}

type CommissionInput struct {
	ClientID    uint          `json:"clientId" binding:"required"`
	PolicyID    *uint         `json:"policyId"`
	Label       string        `json:"label"`
	Category    string        `json:"category"`
	TotalAmount float64       `json:"totalAmount"`
	Parts       []PartPayload `json:"parts"`
}

func enginePartsFromPayload(payload []PartPayload) []commission.Part {
	parts := make([]commission.Part, len(payload))
	for i, p := range payload {
		parts[i] = commission.Part{
			AgentID:   p.AgentID,
			AgentName: p.AgentName,
			Rate:      p.Rate,
			Amount:    p.Amount,
			IsManager: p.IsManager,
		}
	}
	return parts
}

func payloadFromEngineParts(parts []commission.Part) []PartPayload {
	payload := make([]PartPayload, len(parts))
	for i, p := range parts {
		payload[i] = PartPayload{
			AgentID:   p.AgentID,
			AgentName: p.AgentName,
			Rate:      p.Rate,
			Amount:    p.Amount,
			IsManager: p.IsManager,
		}
	}
	return payload
}

// restoredAllocator reconstruit le moteur depuis l'état du formulaire.
func restoredAllocator(c *gin.Context, state AllocatorState) (*commission.Allocator, bool) {
	sess := middleware.SessionFrom(c)
	if state.Category != "" {
		sess.CategoryHint = state.Category
	}
	alloc := commission.NewAllocator(sess, state.TotalAmount)
	if !alloc.Restore(enginePartsFromPayload(state.Parts)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Répartition invalide: doublon ou cumul des taux au-dessus de 100%"})
		return nil, false
	}
	return alloc, true
}

// loadAgentRates charge les taux d'un collaborateur et, le cas échéant,
// ceux de son manager.
func loadAgentRates(agentID uint) (commission.AgentRates, *commission.ManagerRates, error) {
	var user models.User
	if err := config.DB.First(&user, agentID).Error; err != nil {
		return commission.AgentRates{}, nil, err
	}

	agent := commission.AgentRates{
		AgentID:   user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Rate:      user.CommissionRate,
		RateLCA:   user.CommissionRateLCA,
		RateVIE:   user.CommissionRateVIE,
		ManagerID: user.ManagerID,
	}

	if user.ManagerID == nil {
		return agent, nil, nil
	}

	var mgr models.User
	if err := config.DB.First(&mgr, *user.ManagerID).Error; err != nil {
		// Manager supprimé entre-temps: on continue sans part manager.
		return agent, nil, nil
	}
	return agent, &commission.ManagerRates{
		AgentID:        mgr.ID,
		FirstName:      mgr.FirstName,
		LastName:       mgr.LastName,
		ManagerRateLCA: mgr.ManagerCommissionRateLCA,
		ManagerRateVIE: mgr.ManagerCommissionRateVIE,
	}, nil
}

// AllocatorAddPartHandler ajoute une part (et la part manager si elle
// tient) à la répartition du formulaire.
func AllocatorAddPartHandler(c *gin.Context) {
	var input struct {
		AllocatorState
		AgentID       uint    `json:"agentId" binding:"required"`
		RequestedRate float64 `json:"requestedRate"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	alloc, ok := restoredAllocator(c, input.AllocatorState)
	if !ok {
		return
	}

	agent, manager, err := loadAgentRates(input.AgentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Collaborateur introuvable"})
		return
	}

	result := alloc.AddPart(agent, manager, input.RequestedRate)
	c.JSON(http.StatusOK, gin.H{
		"applied":       result.Applied(),
		"rejected":      result.Rejected,
		"added":         payloadFromEngineParts(result.Added),
		"parts":         payloadFromEngineParts(alloc.Parts()),
		"remainingRate": alloc.RemainingRate(),
	})
}

// AllocatorUpdateRateHandler change le taux d'une part du formulaire.
func AllocatorUpdateRateHandler(c *gin.Context) {
	var input struct {
		AllocatorState
		AgentID uint    `json:"agentId" binding:"required"`
		NewRate float64 `json:"newRate"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	alloc, ok := restoredAllocator(c, input.AllocatorState)
	if !ok {
		return
	}

	applied := alloc.UpdatePartRate(input.AgentID, input.NewRate)
	c.JSON(http.StatusOK, gin.H{
		"applied":       applied,
		"parts":         payloadFromEngineParts(alloc.Parts()),
		"remainingRate": alloc.RemainingRate(),
	})
}

// AllocatorRemovePartHandler retire une part du formulaire.
func AllocatorRemovePartHandler(c *gin.Context) {
	var input struct {
		AllocatorState
		AgentID uint `json:"agentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	alloc, ok := restoredAllocator(c, input.AllocatorState)
	if !ok {
		return
	}

	alloc.RemovePart(input.AgentID)
	c.JSON(http.StatusOK, gin.H{
		"parts":         payloadFromEngineParts(alloc.Parts()),
		"remainingRate": alloc.RemainingRate(),
	})
}

// AllocatorRecomputeHandler recalcule les montants après un changement du
// montant total.
func AllocatorRecomputeHandler(c *gin.Context) {
	var input struct {
		AllocatorState
		NewTotalAmount float64 `json:"newTotalAmount"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	alloc, ok := restoredAllocator(c, input.AllocatorState)
	if !ok {
		return
	}

	alloc.RecomputeAmounts(input.NewTotalAmount)
	c.JSON(http.StatusOK, gin.H{"parts": payloadFromEngineParts(alloc.Parts())})
}

// AllocatorAutoPopulateHandler pré-remplit la répartition depuis l'agent
// attribué au client. Ne fait rien si le formulaire a déjà des parts.
func AllocatorAutoPopulateHandler(c *gin.Context) {
	var input struct {
		AllocatorState
		ClientID uint `json:"clientId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	alloc, ok := restoredAllocator(c, input.AllocatorState)
	if !ok {
		return
	}

	var client models.Client
	if err := config.DB.First(&client, input.ClientID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client introuvable"})
		return
	}
	if client.AgentID == nil {
		c.JSON(http.StatusOK, gin.H{"added": []PartPayload{}, "parts": payloadFromEngineParts(alloc.Parts())})
		return
	}

	agent, manager, err := loadAgentRates(*client.AgentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent attribué introuvable"})
		return
	}

	added := alloc.AutoPopulateFromAssignment(agent, manager)
	c.JSON(http.StatusOK, gin.H{
		"added": payloadFromEngineParts(added),
		"parts": payloadFromEngineParts(alloc.Parts()),
	})
}

// ListCommissionsHandler retourne les commissions de l'agence.
func ListCommissionsHandler(c *gin.Context) {
	var commissions []models.Commission
	var totalRows int64

	query := config.DB.Model(&models.Commission{}).
		Where("agency_id = ?", c.GetUint("agency_id"))
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de compter les commissions"})
		return
	}
	if err := query.Preload("Parts").Preload("Client").Scopes(Paginate(c)).
		Order("created_at desc").Find(&commissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les commissions"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, commissions, totalRows))
}

func GetCommissionHandler(c *gin.Context) {
	var com models.Commission
	err := config.DB.Preload("Parts").Preload("Client").Preload("Policy").
		First(&com, c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commission introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du chargement de la commission"})
		return
	}
	c.JSON(http.StatusOK, com)
}

// CreateCommissionHandler persiste une commission et ses parts. La
// répartition est revalidée par le moteur avant l'écriture.
func CreateCommissionHandler(c *gin.Context) {
	var input CommissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	alloc, ok := restoredAllocator(c, AllocatorState{
		Category:    input.Category,
		TotalAmount: input.TotalAmount,
		Parts:       input.Parts,
	})
	if !ok {
		return
	}

	com := models.Commission{
		AgencyID:    c.GetUint("agency_id"),
		ClientID:    input.ClientID,
		PolicyID:    input.PolicyID,
		Label:       input.Label,
		Category:    input.Category,
		TotalAmount: input.TotalAmount,
		Status:      "pending",
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&com).Error; err != nil {
			return err
		}
		for _, p := range alloc.Parts() {
			part := models.CommissionPart{
				CommissionID: com.ID,
				AgentID:      p.AgentID,
				AgentName:    p.AgentName,
				Rate:         p.Rate,
				Amount:       p.Amount,
				IsManager:    p.IsManager,
			}
			if err := tx.Create(&part).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible d'enregistrer la commission: " + err.Error()})
		return
	}

	config.DB.Preload("Parts").First(&com, com.ID)
	c.JSON(http.StatusCreated, com)
}

// UpdateCommissionHandler met à jour une commission; un changement de
// montant total recalcule les montants des parts, taux inchangés.
func UpdateCommissionHandler(c *gin.Context) {
	var com models.Commission
	if err := config.DB.Preload("Parts").First(&com, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commission introuvable"})
		return
	}

	var input struct {
		Label       string  `json:"label"`
		Status      string  `json:"status"`
		TotalAmount float64 `json:"totalAmount"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	com.Label = input.Label
	if input.Status != "" {
		com.Status = input.Status
		if input.Status == "paid" && com.PaidAt == nil {
			now := time.Now()
			com.PaidAt = &now
		}
	}

	amountChanged := input.TotalAmount != com.TotalAmount
	com.TotalAmount = input.TotalAmount

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&com).Error; err != nil {
			return err
		}
		if !amountChanged {
			return nil
		}
		for i := range com.Parts {
			com.Parts[i].Amount = com.TotalAmount * com.Parts[i].Rate / 100
			if err := tx.Save(&com.Parts[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de mettre à jour la commission: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, com)
}

func DeleteCommissionHandler(c *gin.Context) {
	id := c.Param("id")
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("commission_id = ?", id).Delete(&models.CommissionPart{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Commission{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("commission introuvable")
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer la commission: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Commission supprimée"})
}

// PreviewCommissionFormulaHandler évalue la formule de commission d'un
// produit (variables Prime et PrimeAnnuelle) pour afficher un aperçu du
// montant attendu.
func PreviewCommissionFormulaHandler(c *gin.Context) {
	var input struct {
		ProductID      uint    `json:"productId" binding:"required"`
		PremiumMonthly float64 `json:"premiumMonthly"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	var product models.Product
	if err := config.DB.First(&product, input.ProductID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if product.CommissionFormula == "" {
		c.JSON(http.StatusOK, gin.H{"amount": nil})
		return
	}

	expression, err := govaluate.NewEvaluableExpression(product.CommissionFormula)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Erreur dans la formule '%s': %v", product.CommissionFormula, err)})
		return
	}

	parameters := map[string]interface{}{
		"Prime":         input.PremiumMonthly,
		"PrimeAnnuelle": input.PremiumMonthly * 12,
	}
	result, err := expression.Evaluate(parameters)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Impossible d'évaluer la formule: %v", err)})
		return
	}
	amount, ok := result.(float64)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Le résultat de la formule n'est pas un nombre"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"amount": amount})
}

// CommissionStatementHandler produit le décompte d'une commission, montants
// en toutes lettres compris.
func CommissionStatementHandler(c *gin.Context) {
	var com models.Commission
	if err := config.DB.Preload("Parts").Preload("Client").First(&com, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commission introuvable"})
		return
	}

	lines := make([]gin.H, 0, len(com.Parts))
	for _, part := range com.Parts {
		lines = append(lines, gin.H{
			"agentName":     part.AgentName,
			"rate":          part.Rate,
			"amount":        part.Amount,
			"amountInWords": num2words.Convert(int(part.Amount)),
			"isManager":     part.IsManager,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"commissionId":       com.ID,
		"label":              com.Label,
		"totalAmount":        com.TotalAmount,
		"totalAmountInWords": num2words.Convert(int(com.TotalAmount)),
		"currency":           "CHF",
		"lines":              lines,
	})
}

// ExportCommissionsHandler exporte les commissions et leurs parts en Excel.
func ExportCommissionsHandler(c *gin.Context) {
	var commissions []models.Commission
	query := config.DB.Preload("Parts").Preload("Client").
		Where("agency_id = ?", c.GetUint("agency_id")).
		Order("created_at desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&commissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les commissions"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Commissions"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)

	headers := []string{"ID", "Client", "Libellé", "Montant total", "Statut", "Collaborateur", "Taux %", "Montant part"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	row := 2
	for _, com := range commissions {
		clientName := ""
		if com.Client != nil {
			clientName = com.Client.LastName + " " + com.Client.FirstName
		}
		for _, part := range com.Parts {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), com.ID)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), clientName)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), com.Label)
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), com.TotalAmount)
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), com.Status)
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), part.AgentName)
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), part.Rate)
			f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), part.Amount)
			row++
		}
	}

	fileName := fmt.Sprintf("commissions_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}
