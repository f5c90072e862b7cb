package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// ChunkReadingOrder returns a vendor's chunks grouped by document in reading
// order, oldest indexed document first.
func ChunkReadingOrder(db *gorm.DB) *gorm.DB {
	return db.Order("last_indexed ASC").Order("document_id ASC").Order("chunk_index ASC")
}

func ByVendor(vendorId interface{}) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("vendor_id = ?", vendorId)
	}
}
