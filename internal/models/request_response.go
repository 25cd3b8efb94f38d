package models

// Request models
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateBusinessRequest struct {
	Name         string `json:"name" binding:"required"`
	BusinessType string `json:"business_type"`
	TaxNumber    string `json:"tax_number"`
	Address      string `json:"address"`
}

type AddUserToBusinessRequest struct {
	Username string `json:"username" binding:"required"`
}

type UploadStatementRequest struct {
	CSVContent string `json:"csv_content" binding:"required"`
}

// Response models
type RegisterResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UserProfile is a user's public view plus the businesses they belong to.
type UserProfile struct {
	UserID     string             `json:"user_id"`
	Username   string             `json:"username"`
	Email      string             `json:"email"`
	FullName   string             `json:"full_name"`
	Businesses []BusinessResponse `json:"businesses"`
}

type LoginResponse struct {
	Success      bool        `json:"success"`
	SessionToken string      `json:"session_token"`
	User         UserProfile `json:"user"`
}

type LogoutResponse struct {
	Success bool `json:"success"`
}

type BusinessResponse struct {
	BusinessID   string           `json:"business_id"`
	Name         string           `json:"name"`
	OwnerID      string           `json:"owner_id"`
	BusinessType string           `json:"business_type"`
	TaxNumber    string           `json:"tax_number"`
	Address      string           `json:"address"`
	CreatedAt    string           `json:"created_at"`
	Users        []string         `json:"users"`
	Settings     BusinessSettings `json:"settings"`
}

type CreateBusinessResponse struct {
	Success    bool             `json:"success"`
	BusinessID string           `json:"business_id"`
	Business   BusinessResponse `json:"business"`
}

type ListBusinessesResponse struct {
	Success    bool               `json:"success"`
	Businesses []BusinessResponse `json:"businesses"`
}

type AddUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Summary aggregates a batch of transactions. Monetary fields are rounded
// to two decimal places.
type Summary struct {
	TotalTransactions int                `json:"total_transactions"`
	TotalIncome       float64            `json:"total_income"`
	TotalExpenses     float64            `json:"total_expenses"`
	NetAmount         float64            `json:"net_amount"`
	Categories        map[string]float64 `json:"categories"`
}

type UploadStatementResponse struct {
	Success           bool          `json:"success"`
	TransactionsCount int           `json:"transactions_count"`
	Transactions      []Transaction `json:"transactions"`
	Summary           Summary       `json:"summary"`
}

type TransactionsResponse struct {
	Success      bool          `json:"success"`
	Count        int           `json:"count"`
	Transactions []Transaction `json:"transactions"`
}

// TaxExport is the stable shape consumed by the downstream tax-computation
// engine: transactions grouped by category for one business.
type TaxExport struct {
	Success      bool                     `json:"success"`
	BusinessID   string                   `json:"business_id"`
	BusinessName string                   `json:"business_name"`
	BusinessType string                   `json:"business_type"`
	TaxYear      string                   `json:"tax_year"`
	Categories   map[string][]Transaction `json:"categories"`
	Summary      Summary                  `json:"summary"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
