package domain

import "time"

// Draft is a persisted wizard session: the answers plus the cursor.
type Draft struct {
	ID          string    `json:"id"`
	Flow        string    `json:"flow"`
	Answers     Answers   `json:"answers"`
	CurrentStep int       `json:"current_step"`
	MaxVisited  int       `json:"max_visited"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EmailStatusPending marks an email record waiting for the delivery worker.
const EmailStatusPending = "pending"

// EmailRecord is one message in the outbound email queue.
type EmailRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	OrderID   string    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

// Country is a destination or nationality in the reference catalog.
type Country struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	NameEn string `json:"name_en"`
	Hague  bool   `json:"hague"`
}

// Service is a purchasable legalization step or add-on. Price is in öre.
type Service struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// VisaProduct is a visa offered for a destination.
type VisaProduct struct {
	ID       string `json:"id"`
	Country  string `json:"country"`
	Name     string `json:"name"`
	VisaType string `json:"visa_type"`
	Price    int64  `json:"price"`
}

// DocumentType is a kind of document the storefront legalizes.
type DocumentType struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameEn string `json:"name_en"`
}
