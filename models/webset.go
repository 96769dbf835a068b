package models

// Webset scopes and statuses as stored on webset records.
const (
	ScopeCompany = "company"
	ScopePerson  = "person"
	ScopeArticle = "article"

	WebsetStatusIdle      = "idle"
	WebsetStatusRunning   = "running"
	WebsetStatusCompleted = "completed"
	WebsetStatusFailed    = "failed"
)

// Import statuses of a prospect record.
const (
	ImportPending  = "pending"
	ImportImported = "imported"
	ImportSkipped  = "skipped"
)

// Webset is the typed view of a websets record.
type Webset struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Query            string `json:"query"`
	Scope            string `json:"scope"`
	Depth            int    `json:"depth"`
	Status           string `json:"status"`
	ExternalWebsetID string `json:"externalWebsetId"`
	ResultsCount     int    `json:"resultsCount"`
	LastError        string `json:"lastError"`
}

// NewWebsetFields are the fields of a freshly created webset.
func NewWebsetFields() map[string]any {
	return map[string]any{
		"name":   "New Webset",
		"query":  "",
		"scope":  ScopeCompany,
		"depth":  25,
		"status": WebsetStatusIdle,
	}
}

// Prospect is the typed view of a prospects record.
type Prospect struct {
	ID               string         `json:"id"`
	WebsetID         string         `json:"websetId"`
	ExternalItemID   string         `json:"externalItemId"`
	EntityType       string         `json:"entityType"`
	URL              string         `json:"url"`
	Description      string         `json:"description"`
	Email            string         `json:"email"`
	CompanyName      string         `json:"companyName"`
	CompanyLocation  string         `json:"companyLocation"`
	CompanyEmployees int            `json:"companyEmployees"`
	CompanyIndustry  string         `json:"companyIndustry"`
	CompanyLogoURL   string         `json:"companyLogoUrl"`
	PersonName       string         `json:"personName"`
	PersonLocation   string         `json:"personLocation"`
	PersonPosition   string         `json:"personPosition"`
	PersonCompany    string         `json:"personCompany"`
	PersonPictureURL string         `json:"personPictureUrl"`
	QualityScore     int            `json:"qualityScore"`
	ImportStatus     string         `json:"importStatus"`
	EnrichmentData   map[string]any `json:"enrichmentData,omitempty"`
}

// Recipient maps a person prospect onto enrollment reference data.
func (p Prospect) Recipient() Recipient {
	company := p.PersonCompany
	if company == "" {
		company = p.CompanyName
	}
	return Recipient{
		ID:      p.ID,
		Name:    p.PersonName,
		Email:   p.Email,
		Company: company,
		Title:   p.PersonPosition,
	}
}
