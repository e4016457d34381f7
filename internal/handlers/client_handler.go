package handlers

import (
	"errors"
	"net/http"
	"strings"

	"advisy-crm/config"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ClientInput struct {
	LastName  string `json:"lastName" binding:"required"`
	FirstName string `json:"firstName" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
	AvsNumber string `json:"avsNumber"`

	Address string `json:"address"`
	Npa     string `json:"npa"`
	City    string `json:"city"`
	Canton  string `json:"canton"`

	Nationality   string `json:"nationality"`
	MaritalStatus string `json:"maritalStatus"`
	Comments      string `json:"comments"`
	AgentID       *uint  `json:"agentId"`
}

// ListClientsHandler retourne le portefeuille clients de l'agence, avec
// recherche sur nom/prénom/email/numéro AVS.
func ListClientsHandler(c *gin.Context) {
	var clients []models.Client
	var totalRows int64

	query := config.DB.Model(&models.Client{}).
		Where("agency_id = ?", c.GetUint("agency_id"))

	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(last_name) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(email) LIKE ? OR avs_number LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		query = query.Where("agent_id = ?", agentID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de compter les clients"})
		return
	}

	if err := query.Preload("Agent").Scopes(Paginate(c)).
		Order("last_name, first_name").Find(&clients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les clients"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, clients, totalRows))
}

func GetClientHandler(c *gin.Context) {
	var client models.Client
	err := config.DB.Preload("Agent").Preload("FamilyLinks.Relative").Preload("Policies").
		First(&client, c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du chargement du client"})
		return
	}
	c.JSON(http.StatusOK, client)
}

func CreateClientHandler(c *gin.Context) {
	var input ClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	client := clientFromInput(&input)
	client.AgencyID = c.GetUint("agency_id")

	if err := config.DB.Create(client).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer le client: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, client)
}

func UpdateClientHandler(c *gin.Context) {
	var client models.Client
	if err := config.DB.First(&client, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client introuvable"})
		return
	}

	var input ClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	updated := clientFromInput(&input)
	updated.ID = client.ID
	updated.AgencyID = client.AgencyID
	updated.Status = client.Status
	updated.CreatedAt = client.CreatedAt

	if err := config.DB.Save(updated).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de mettre à jour le client: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, updated)
}

func DeleteClientHandler(c *gin.Context) {
	result := config.DB.Delete(&models.Client{}, c.Param("id"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer le client"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client introuvable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client supprimé"})
}

// AddFamilyLinkHandler relie un client à un proche (lui-même client).
func AddFamilyLinkHandler(c *gin.Context) {
	var input struct {
		RelativeID       uint   `json:"relativeId" binding:"required"`
		RelationshipType string `json:"relationshipType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	var client models.Client
	if err := config.DB.First(&client, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client introuvable"})
		return
	}

	link := models.FamilyLink{
		ClientID:         client.ID,
		RelativeID:       input.RelativeID,
		RelationshipType: input.RelationshipType,
	}
	if err := config.DB.Create(&link).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer le lien familial"})
		return
	}

	c.JSON(http.StatusCreated, link)
}

func RemoveFamilyLinkHandler(c *gin.Context) {
	result := config.DB.Where("client_id = ? AND relative_id = ?", c.Param("id"), c.Param("relativeId")).
		Delete(&models.FamilyLink{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer le lien familial"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lien familial introuvable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lien familial supprimé"})
}

func clientFromInput(input *ClientInput) *models.Client {
	return &models.Client{
		LastName:      input.LastName,
		FirstName:     input.FirstName,
		Email:         input.Email,
		Phone:         input.Phone,
		BirthDate:     parseDatePtr(input.BirthDate),
		AvsNumber:     input.AvsNumber,
		Address:       input.Address,
		Npa:           input.Npa,
		City:          input.City,
		Canton:        input.Canton,
		Nationality:   input.Nationality,
		MaritalStatus: input.MaritalStatus,
		Comments:      input.Comments,
		AgentID:       input.AgentID,
	}
}
