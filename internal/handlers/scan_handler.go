package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"advisy-crm/config"
	"advisy-crm/internal/middleware"
	"advisy-crm/internal/reconcile"
	"advisy-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// scanExtraction est la forme du JSON demandé à Gemini, reprise telle
// quelle dans le dialogue de validation.
type scanExtraction struct {
	Client        extractedClient             `json:"client"`
	FamilyMembers []extractedFamilyMember     `json:"familyMembers"`
	OldProducts   []reconcile.DetectedProduct `json:"oldProducts"`
	NewProducts   []reconcile.DetectedProduct `json:"newProducts"`
	Termination   bool                        `json:"termination"`
}

type extractedClient struct {
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	BirthDate string `json:"birthDate"`
	AvsNumber string `json:"avsNumber"`
	Address   string `json:"address"`
	Npa       string `json:"npa"`
	City      string `json:"city"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type extractedFamilyMember struct {
	LastName         string `json:"lastName"`
	FirstName        string `json:"firstName"`
	BirthDate        string `json:"birthDate"`
	RelationshipType string `json:"relationshipType"`
}

const scanExtractionPrompt = "Tu es un expert en documents d'assurance suisses (LAMal, LCA, prévoyance). " +
	"Analyse le document fourni (proposition, police ou formulaire de résiliation) et extrais les données suivantes. " +
	"Ta réponse doit être uniquement du JSON, sans texte autour, avec cette structure:\n" +
	"{\"client\": {\"lastName\": \"\", \"firstName\": \"\", \"birthDate\": \"aaaa-mm-jj\", \"avsNumber\": \"\", \"address\": \"\", \"npa\": \"\", \"city\": \"\", \"email\": \"\", \"phone\": \"\"}, " +
	"\"familyMembers\": [{\"lastName\": \"\", \"firstName\": \"\", \"birthDate\": \"aaaa-mm-jj\", \"relationshipType\": \"conjoint|enfant\"}], " +
	"\"oldProducts\": [{\"company\": \"\", \"productName\": \"\", \"productCategory\": \"health|life|other\", \"premiumMonthly\": 0.0, \"franchise\": 0.0, \"policyNumber\": \"\", \"startDate\": \"aaaa-mm-jj\", \"endDate\": \"aaaa-mm-jj\"}], " +
	"\"newProducts\": [...même structure...], " +
	"\"termination\": false}\n" +
	"oldProducts sont les contrats existants à reprendre ou résilier, newProducts les contrats proposés. " +
	"termination vaut true si le document contient une résiliation des anciens contrats. " +
	"N'invente aucune valeur: laisse vide ce qui n'apparaît pas dans le document."

// UploadScanHandler reçoit un document scanné et ouvre une session IA-Scan.
func UploadScanHandler(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}

	scanDir := filepath.Join(documentsBaseDir(), "scans")
	if err := ensureDir(scanDir); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stockage indisponible"})
		return
	}

	storedName := uuid.New().String() + filepath.Ext(file.Filename)
	storedPath := filepath.Join(scanDir, storedName)
	if err := c.SaveUploadedFile(file, storedPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible d'enregistrer le fichier"})
		return
	}

	session := models.ScanSession{
		AgencyID:     c.GetUint("agency_id"),
		UploadedBy:   userID,
		Status:       "uploaded",
		FilePath:     storedPath,
		FileName:     file.Filename,
		CategoryHint: c.PostForm("category"),
	}
	if err := config.DB.Create(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer la session de scan"})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ExtractScanHandler envoie le document à Gemini et stocke l'extraction
// brute dans la session. Le conseiller la corrige ensuite dans le dialogue
// de validation.
func ExtractScanHandler(c *gin.Context) {
	var session models.ScanSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session de scan introuvable"})
		return
	}

	if config.GeminiClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service d'extraction indisponible"})
		return
	}
	if !fileExists(session.FilePath) {
		c.JSON(http.StatusGone, gin.H{"error": "Le fichier du scan a disparu du stockage"})
		return
	}

	data, err := os.ReadFile(session.FilePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lecture du fichier en échec"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	prompt := []genai.Part{
		genai.Text(scanExtractionPrompt),
		&genai.Blob{MIMEType: mimeTypeForFile(session.FileName), Data: data},
	}

	resp, err := config.GeminiClient.GenerateContent(ctx, prompt...)
	if err != nil {
		markScanFailed(&session)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur d'extraction Gemini: " + err.Error()})
		return
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		markScanFailed(&session)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gemini n'a rien retourné"})
		return
	}
	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		markScanFailed(&session)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Réponse Gemini illisible"})
		return
	}

	cleanJSON := strings.Trim(string(textPart), "```json \n")
	var extraction scanExtraction
	if err := json.Unmarshal([]byte(cleanJSON), &extraction); err != nil {
		markScanFailed(&session)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Extraction non conforme: " + err.Error()})
		return
	}

	if err := storeExtraction(&session, extraction); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible d'enregistrer l'extraction"})
		return
	}

	GlobalHub.NotifyUser(session.UploadedBy, "scan_extracted", gin.H{"scanId": session.ID})
	c.JSON(http.StatusOK, session)
}

// UpdateScanHandler enregistre les corrections du dialogue de validation.
func UpdateScanHandler(c *gin.Context) {
	var session models.ScanSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session de scan introuvable"})
		return
	}
	if session.Status == "validated" {
		c.JSON(http.StatusConflict, gin.H{"error": "Session déjà validée"})
		return
	}

	var extraction scanExtraction
	if err := c.ShouldBindJSON(&extraction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}
	if category := c.Query("category"); category != "" {
		session.CategoryHint = category
	}

	if err := storeExtraction(&session, extraction); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible d'enregistrer les corrections"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// ValidateScanHandler applique une session corrigée: client trouvé ou créé,
// membres de famille liés, une police par compagnie pour chaque jeu de
// contrats, document rattaché et tâche de suivi ouverte.
func ValidateScanHandler(c *gin.Context) {
	var scan models.ScanSession
	if err := config.DB.First(&scan, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session de scan introuvable"})
		return
	}
	if scan.Status == "validated" {
		c.JSON(http.StatusConflict, gin.H{"error": "Session déjà validée"})
		return
	}

	extraction, err := loadExtraction(&scan)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session sans extraction exploitable: " + err.Error()})
		return
	}
	if extraction.Client.LastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le nom du client est requis avant validation"})
		return
	}

	sess := middleware.SessionFrom(c)
	if scan.CategoryHint != "" {
		sess.CategoryHint = scan.CategoryHint
	}

	client, err := findOrCreateClient(scan.AgencyID, scan.UploadedBy, extraction.Client)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer le client: " + err.Error()})
		return
	}
	linkFamilyMembers(scan.AgencyID, client.ID, extraction.FamilyMembers)

	reconciler := reconcile.NewReconciler(sess, reconcile.NewGormCatalog(config.DB))

	oldDrafts, oldSummary := reconciler.Reconcile(c.Request.Context(), extraction.OldProducts,
		reconcile.Options{Kind: reconcile.SetOld, Termination: extraction.Termination})
	newDrafts, newSummary := reconciler.Reconcile(c.Request.Context(), extraction.NewProducts,
		reconcile.Options{Kind: reconcile.SetNew})

	created := 0
	warnings := append(oldSummary.Warnings, newSummary.Warnings...)
	for _, draft := range append(oldDrafts, newDrafts...) {
		if err := insertPolicyFromDraft(scan.AgencyID, client.ID, draft); err != nil {
			slog.Error("Insertion de police en échec, groupe ignoré",
				"scan_id", scan.ID, "company", draft.CompanyName, "error", err)
			warnings = append(warnings, fmt.Sprintf("compagnie %q: insertion en échec", draft.CompanyName))
			continue
		}
		created++
	}

	attachScanDocument(&scan, client.ID)
	createFollowUpTask(&scan, client)

	scan.Status = "validated"
	scan.ClientID = &client.ID
	scan.Termination = extraction.Termination
	if err := config.DB.Save(&scan).Error; err != nil {
		slog.Error("Sauvegarde de la session validée en échec", "scan_id", scan.ID, "error", err)
	}

	GlobalHub.NotifyUser(scan.UploadedBy, "scan_validated", gin.H{
		"scanId":   scan.ID,
		"clientId": client.ID,
		"created":  created,
	})

	c.JSON(http.StatusOK, gin.H{
		"clientId":        client.ID,
		"policiesCreated": created,
		"groupsSkipped":   oldSummary.Skipped + newSummary.Skipped,
		"warnings":        warnings,
	})
}

// ListScanSessionsHandler retourne les sessions de scan de l'agence.
func ListScanSessionsHandler(c *gin.Context) {
	var sessions []models.ScanSession
	var totalRows int64

	query := config.DB.Model(&models.ScanSession{}).
		Where("agency_id = ?", c.GetUint("agency_id"))
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de compter les sessions"})
		return
	}
	if err := query.Preload("Client").Scopes(Paginate(c)).
		Order("created_at desc").Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de charger les sessions"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, sessions, totalRows))
}

func GetScanSessionHandler(c *gin.Context) {
	var session models.ScanSession
	err := config.DB.Preload("Client").First(&session, c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session de scan introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du chargement de la session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func DeleteScanSessionHandler(c *gin.Context) {
	var session models.ScanSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session de scan introuvable"})
		return
	}
	if session.Status == "validated" {
		c.JSON(http.StatusConflict, gin.H{"error": "Une session validée ne se supprime pas"})
		return
	}

	if session.FilePath != "" {
		if err := os.Remove(session.FilePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("Suppression du fichier de scan en échec", "path", session.FilePath, "error", err)
		}
	}
	if err := config.DB.Delete(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de supprimer la session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session supprimée"})
}

// --- Helpers de la validation ---

func storeExtraction(session *models.ScanSession, extraction scanExtraction) error {
	clientJSON, _ := json.Marshal(extraction.Client)
	familyJSON, _ := json.Marshal(extraction.FamilyMembers)
	oldJSON, _ := json.Marshal(extraction.OldProducts)
	newJSON, _ := json.Marshal(extraction.NewProducts)

	session.ExtractedClient = models.RawJSON(clientJSON)
	session.FamilyMembers = models.RawJSON(familyJSON)
	session.OldProducts = models.RawJSON(oldJSON)
	session.NewProducts = models.RawJSON(newJSON)
	session.Termination = extraction.Termination
	session.Status = "extracted"
	return config.DB.Save(session).Error
}

func loadExtraction(session *models.ScanSession) (scanExtraction, error) {
	var extraction scanExtraction
	if len(session.ExtractedClient) == 0 {
		return extraction, errors.New("aucune donnée client extraite")
	}
	if err := json.Unmarshal(session.ExtractedClient, &extraction.Client); err != nil {
		return extraction, err
	}
	if len(session.FamilyMembers) > 0 {
		if err := json.Unmarshal(session.FamilyMembers, &extraction.FamilyMembers); err != nil {
			return extraction, err
		}
	}
	if len(session.OldProducts) > 0 {
		if err := json.Unmarshal(session.OldProducts, &extraction.OldProducts); err != nil {
			return extraction, err
		}
	}
	if len(session.NewProducts) > 0 {
		if err := json.Unmarshal(session.NewProducts, &extraction.NewProducts); err != nil {
			return extraction, err
		}
	}
	extraction.Termination = session.Termination
	return extraction, nil
}

func markScanFailed(session *models.ScanSession) {
	session.Status = "failed"
	if err := config.DB.Save(session).Error; err != nil {
		slog.Error("Marquage de session en échec impossible", "scan_id", session.ID, "error", err)
	}
}

// findOrCreateClient retrouve le client par numéro AVS, sinon par nom et
// prénom, sinon le crée attribué au conseiller qui a uploadé le scan.
func findOrCreateClient(agencyID, uploadedBy uint, extracted extractedClient) (*models.Client, error) {
	var client models.Client

	if extracted.AvsNumber != "" {
		err := config.DB.Where("agency_id = ? AND avs_number = ?", agencyID, extracted.AvsNumber).
			First(&client).Error
		if err == nil {
			return &client, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	err := config.DB.Where("agency_id = ? AND LOWER(last_name) = ? AND LOWER(first_name) = ?",
		agencyID, strings.ToLower(extracted.LastName), strings.ToLower(extracted.FirstName)).
		First(&client).Error
	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	client = models.Client{
		AgencyID:  agencyID,
		LastName:  extracted.LastName,
		FirstName: extracted.FirstName,
		Email:     extracted.Email,
		Phone:     extracted.Phone,
		BirthDate: parseDatePtr(extracted.BirthDate),
		AvsNumber: extracted.AvsNumber,
		Address:   extracted.Address,
		Npa:       extracted.Npa,
		City:      extracted.City,
		Status:    "active",
		AgentID:   &uploadedBy,
	}
	if err := config.DB.Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// linkFamilyMembers crée les proches comme clients et les relie. Un échec
// sur un membre n'interrompt pas les autres.
func linkFamilyMembers(agencyID, clientID uint, members []extractedFamilyMember) {
	for _, member := range members {
		if member.LastName == "" && member.FirstName == "" {
			continue
		}
		relative := models.Client{
			AgencyID:  agencyID,
			LastName:  member.LastName,
			FirstName: member.FirstName,
			BirthDate: parseDatePtr(member.BirthDate),
			Status:    "active",
		}
		err := config.DB.Where("agency_id = ? AND LOWER(last_name) = ? AND LOWER(first_name) = ?",
			agencyID, strings.ToLower(member.LastName), strings.ToLower(member.FirstName)).
			FirstOrCreate(&relative).Error
		if err != nil {
			slog.Warn("Création d'un proche en échec", "lastName", member.LastName, "error", err)
			continue
		}
		link := models.FamilyLink{
			ClientID:         clientID,
			RelativeID:       relative.ID,
			RelationshipType: member.RelationshipType,
		}
		if err := config.DB.Create(&link).Error; err != nil {
			slog.Warn("Création du lien familial en échec", "relativeId", relative.ID, "error", err)
		}
	}
}

func insertPolicyFromDraft(agencyID, clientID uint, draft reconcile.PolicyDraft) error {
	products := make(models.PolicyProducts, len(draft.ProductsData))
	for i, entry := range draft.ProductsData {
		products[i] = models.PolicyProduct{
			ProductID:     entry.ProductID,
			Name:          entry.Name,
			Category:      entry.Category,
			Premium:       entry.Premium,
			Deductible:    entry.Deductible,
			DurationYears: entry.DurationYears,
		}
	}

	policy := models.Policy{
		AgencyID:       agencyID,
		ClientID:       clientID,
		ProductID:      draft.ProductID,
		PolicyNumber:   draft.PolicyNumber,
		Status:         draft.Status,
		StartDate:      parseDatePtr(draft.StartDate),
		EndDate:        parseDatePtr(draft.EndDate),
		PremiumMonthly: draft.PremiumMonthly,
		PremiumYearly:  draft.PremiumYearly,
		Deductible:     draft.Deductible,
		CompanyName:    draft.CompanyName,
		ProductType:    draft.ProductType,
		ProductsData:   products,
		Notes:          draft.Notes,
	}
	return config.DB.Create(&policy).Error
}

func attachScanDocument(scan *models.ScanSession, clientID uint) {
	if scan.FilePath == "" {
		return
	}
	document := models.Document{
		AgencyID: scan.AgencyID,
		ClientID: clientID,
		FileName: scan.FileName,
		FilePath: scan.FilePath,
		MimeType: mimeTypeForFile(scan.FileName),
		Source:   "ia_scan",
	}
	if err := config.DB.Create(&document).Error; err != nil {
		slog.Warn("Rattachement du document de scan en échec", "scan_id", scan.ID, "error", err)
	}
}

// createFollowUpTask ouvre une tâche de vérification pour le conseiller à
// une semaine, le temps que les compagnies confirment.
func createFollowUpTask(scan *models.ScanSession, client *models.Client) {
	due := time.Now().AddDate(0, 0, 7)
	task := models.Task{
		AgencyID: scan.AgencyID,
		Title:    fmt.Sprintf("Vérifier les polices IA-Scan de %s %s", client.LastName, client.FirstName),
		Description: "Contrôler les polices créées depuis le scan et confirmer la réception " +
			"des documents par les compagnies.",
		DueDate:    &due,
		Status:     "open",
		ClientID:   &client.ID,
		AssigneeID: &scan.UploadedBy,
	}
	if err := config.DB.Create(&task).Error; err != nil {
		slog.Warn("Création de la tâche de suivi en échec", "scan_id", scan.ID, "error", err)
	}
}

func mimeTypeForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
