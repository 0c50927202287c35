package domain

import (
	"strings"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/stats"
)

// Weeks of supply a single pack collection may cover
const (
	MinWeeksSupply     = 1
	MaxWeeksSupply     = 4
	DefaultWeeksSupply = 1
)

// Customer is a pharmacy customer receiving Webster packs
type Customer struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	DOB       *Date     `db:"dob" json:"dob,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Scan records one pack collection. NextDueDate is derived once, at
// creation, and never edited.
type Scan struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	CustomerID     string    `db:"customer_id" json:"customer_id"`
	CustomerName   string    `db:"customer_name" json:"customer_name,omitempty"`
	Barcode        string    `db:"barcode" json:"barcode"`
	StaffInitials  string    `db:"staff_initials" json:"staff_initials"`
	WeeksSupply    int       `db:"weeks_supply" json:"weeks_supply"`
	CollectionDate time.Time `db:"collection_date" json:"collection_date"`
	NextDueDate    time.Time `db:"next_due_date" json:"next_due_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// NewScan builds a scan with normalized initials and its derived due date.
// A zero collection time means now; weeks of 0 means DefaultWeeksSupply.
func NewScan(userID, customerID, barcode, staffInitials string, weeksSupply int, collection time.Time, now time.Time) *Scan {
	if collection.IsZero() {
		collection = now
	}
	if weeksSupply == 0 {
		weeksSupply = DefaultWeeksSupply
	}
	return &Scan{
		UserID:         userID,
		CustomerID:     customerID,
		Barcode:        strings.TrimSpace(barcode),
		StaffInitials:  NormalizeInitials(staffInitials),
		WeeksSupply:    weeksSupply,
		CollectionDate: collection,
		NextDueDate:    stats.NextDueDate(collection, weeksSupply),
	}
}

// StatsScan is the aggregator's view of the scan
func (s *Scan) StatsScan() stats.Scan {
	return stats.Scan{CollectionDate: s.CollectionDate, NextDueDate: s.NextDueDate}
}

// NormalizeInitials trims and upper-cases staff initials
func NormalizeInitials(initials string) string {
	return strings.ToUpper(strings.TrimSpace(initials))
}

// Note is a free-text reminder attached to a customer
type Note struct {
	ID          string    `db:"id" json:"id"`
	CustomerID  string    `db:"customer_id" json:"customer_id"`
	Content     string    `db:"content" json:"content"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Profile holds the pharmacist's details. ID is the identity subject.
type Profile struct {
	ID              string    `db:"id" json:"id"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	PharmacyName    string    `db:"pharmacy_name" json:"pharmacy_name"`
	PharmacyAddress string    `db:"pharmacy_address" json:"pharmacy_address"`
	PharmacyPhone   string    `db:"pharmacy_phone" json:"pharmacy_phone"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StatusOverview summarizes one customer's collection state
type StatusOverview struct {
	CustomerID     string     `json:"customer_id"`
	LastCollection *time.Time `json:"last_collection"`
	NextDue        *time.Time `json:"next_due"`
	PendingCount   int        `json:"pending_count"`
	TotalScans     int        `json:"total_scans"`
}

// Overview derives the status card for a customer from their scans.
// NextDue is the earliest due date on record; pending counts due dates after now.
func Overview(customerID string, scans []*Scan, now time.Time) StatusOverview {
	o := StatusOverview{CustomerID: customerID, TotalScans: len(scans)}
	for _, s := range scans {
		if o.LastCollection == nil || s.CollectionDate.After(*o.LastCollection) {
			t := s.CollectionDate
			o.LastCollection = &t
		}
		if o.NextDue == nil || s.NextDueDate.Before(*o.NextDue) {
			t := s.NextDueDate
			o.NextDue = &t
		}
		if s.NextDueDate.After(now) {
			o.PendingCount++
		}
	}
	return o
}
