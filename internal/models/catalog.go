package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductMaster is the canonical product catalog entry synced stock rows are
// resolved against. HSNCode doubles as the catalog-side SKU code.
type ProductMaster struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null;index:idx_product_masters_name" json:"name"`
	GenericName *string   `gorm:"type:varchar(255);index:idx_product_masters_generic" json:"genericName,omitempty"`
	HSNCode     *string   `gorm:"type:varchar(50);index:idx_product_masters_hsn" json:"hsnCode,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for ProductMaster
func (ProductMaster) TableName() string {
	return "product_masters"
}

// Retailer is the pharmacy shop owning connectors and mirrored stock.
type Retailer struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ShopName string    `gorm:"type:varchar(255);not null" json:"shopName"`
	District string    `gorm:"type:varchar(100);not null" json:"district"`
	Phone    *string   `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Email    *string   `gorm:"type:varchar(255)" json:"email,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for Retailer
func (Retailer) TableName() string {
	return "retailers"
}

// Distributor is a wholesale supplier whose live inventory feeds the matcher.
type Distributor struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CompanyName string    `gorm:"type:varchar(255);not null" json:"companyName"`
	District    string    `gorm:"type:varchar(100);not null" json:"district"`
	Phone       *string   `gorm:"type:varchar(30)" json:"phone,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for Distributor
func (Distributor) TableName() string {
	return "distributors"
}

// DistributorInventory is a live distributor offer. Read-only to this service;
// rows with stock > 0 are matching candidates. PTR is the price-to-retailer.
type DistributorInventory struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DistributorID uuid.UUID `gorm:"type:uuid;not null;index:idx_distributor_inventories_distributor" json:"distributorId"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index:idx_distributor_inventories_product" json:"productId"`

	PTR         float64   `gorm:"not null" json:"ptr"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	Expiry      time.Time `gorm:"not null" json:"expiry"`
	BatchNumber *string   `gorm:"type:varchar(255)" json:"batchNumber,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Relationships
	Product     *ProductMaster `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Distributor *Distributor   `gorm:"foreignKey:DistributorID" json:"distributor,omitempty"`
}

// TableName specifies the table name for DistributorInventory
func (DistributorInventory) TableName() string {
	return "distributor_inventories"
}
