package constants

// ValidationStatus is the canonical status stored inside the validacao block
// of the primary artifact.
type ValidationStatus string

// Stable wire values (downstream consumers read these exact strings).
const (
	ValidationApproved ValidationStatus = "APROVADA"  // matched, no field divergences
	ValidationRejected ValidationStatus = "REPROVADA" // lookup miss or field mismatch
	ValidationPending  ValidationStatus = "PENDENTE"  // identifying data not available yet
	ValidationError    ValidationStatus = "ERRO"      // reference dataset unavailable/invalid
)

// Document types written to the tipo_documento artifact field.
const (
	DocTypeTermSheet = "termo_securitizacao"
	DocTypeAmendment = "aditamento"
)
