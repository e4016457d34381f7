package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"advisy-crm/config"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListClientDocumentsHandler retourne les documents d'un client.
func ListClientDocumentsHandler(c *gin.Context) {
	var documents []models.Document
	err := config.DB.Where("agency_id = ? AND client_id = ?",
		c.GetUint("agency_id"), c.Param("id")).
		Order("created_at desc").Find(&documents).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les documents"})
		return
	}
	c.JSON(http.StatusOK, documents)
}

// UploadClientDocumentHandler rattache un fichier à un client.
func UploadClientDocumentHandler(c *gin.Context) {
	var client models.Client
	if err := config.DB.First(&client, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client introuvable"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}

	clientDir := filepath.Join(documentsBaseDir(), "clients")
	if err := ensureDir(clientDir); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stockage indisponible"})
		return
	}

	storedPath := filepath.Join(clientDir, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, storedPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible d'enregistrer le fichier"})
		return
	}

	document := models.Document{
		AgencyID: client.AgencyID,
		ClientID: client.ID,
		FileName: file.Filename,
		FilePath: storedPath,
		MimeType: mimeTypeForFile(file.Filename),
		Source:   "upload",
	}
	if err := config.DB.Create(&document).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible d'enregistrer le document"})
		return
	}
	c.JSON(http.StatusCreated, document)
}

// DownloadDocumentHandler sert le fichier d'un document.
func DownloadDocumentHandler(c *gin.Context) {
	var document models.Document
	if err := config.DB.First(&document, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document introuvable"})
		return
	}
	if !fileExists(document.FilePath) {
		c.JSON(http.StatusGone, gin.H{"error": "Le fichier a disparu du stockage"})
		return
	}
	c.FileAttachment(document.FilePath, document.FileName)
}

func DeleteDocumentHandler(c *gin.Context) {
	var document models.Document
	if err := config.DB.First(&document, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document introuvable"})
		return
	}

	if document.FilePath != "" {
		if err := os.Remove(document.FilePath); err != nil && !os.IsNotExist(err) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer le fichier"})
			return
		}
	}
	if err := config.DB.Delete(&document).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer le document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document supprimé"})
}
