package session

// Catégories de produits utilisées dans tout le CRM.
const (
	CategoryHealth = "health"
	CategoryLife   = "life"
	CategoryOther  = "other"
)

// Context regroupe l'état de session résolu par la couche HTTP (agence,
// utilisateur, rôle actif, catégorie de travail). Les moteurs métier le
// reçoivent explicitement au lieu de lire un état global.
type Context struct {
	TenantID     uint
	UserID       uint
	Role         string
	CategoryHint string
}
