package models

import "fmt"

// EntityType names the kind of business object a complaint is about.
type EntityType string

const (
	EntityService         EntityType = "service"
	EntityProduct         EntityType = "product"
	EntityProvider        EntityType = "provider"
	EntityHumanitarianOrg EntityType = "humanitarian_org"
	EntityParkingService  EntityType = "parking_service"
	EntityBulkService     EntityType = "bulk_service"
)

var entityTypes = []EntityType{
	EntityService,
	EntityProduct,
	EntityProvider,
	EntityHumanitarianOrg,
	EntityParkingService,
	EntityBulkService,
}

func (t EntityType) Valid() bool {
	for _, et := range entityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// EntityRef points at exactly one business object, or at nothing when Type is empty.
type EntityRef struct {
	Type EntityType `json:"type,omitempty" gorm:"type:varchar(32);index:idx_complaint_entity"`
	ID   uint       `json:"id,omitempty" gorm:"index:idx_complaint_entity"`
}

// NewEntityRef validates the pair and returns the reference.
func NewEntityRef(t EntityType, id uint) (EntityRef, error) {
	if !t.Valid() {
		return EntityRef{}, fmt.Errorf("unknown entity type %q", t)
	}
	if id == 0 {
		return EntityRef{}, fmt.Errorf("entity id is required for %s", t)
	}
	return EntityRef{Type: t, ID: id}, nil
}

func (r EntityRef) IsZero() bool {
	return r.Type == "" && r.ID == 0
}

// EntityColumns is the per-type nullable id view of an EntityRef.
type EntityColumns struct {
	ServiceID         *uint `json:"serviceId"`
	ProductID         *uint `json:"productId"`
	ProviderID        *uint `json:"providerId"`
	HumanitarianOrgID *uint `json:"humanitarianOrgId"`
	ParkingServiceID  *uint `json:"parkingServiceId"`
	BulkServiceID     *uint `json:"bulkServiceId"`
}

// Columns projects the reference onto the per-type columns. At most one field is set.
func (r EntityRef) Columns() EntityColumns {
	var cols EntityColumns
	if r.IsZero() {
		return cols
	}
	id := r.ID
	switch r.Type {
	case EntityService:
		cols.ServiceID = &id
	case EntityProduct:
		cols.ProductID = &id
	case EntityProvider:
		cols.ProviderID = &id
	case EntityHumanitarianOrg:
		cols.HumanitarianOrgID = &id
	case EntityParkingService:
		cols.ParkingServiceID = &id
	case EntityBulkService:
		cols.BulkServiceID = &id
	}
	return cols
}

// EntityRefFromColumns is the inverse of Columns. It fails when more than one column is set.
func EntityRefFromColumns(cols EntityColumns) (EntityRef, error) {
	candidates := []struct {
		t  EntityType
		id *uint
	}{
		{EntityService, cols.ServiceID},
		{EntityProduct, cols.ProductID},
		{EntityProvider, cols.ProviderID},
		{EntityHumanitarianOrg, cols.HumanitarianOrgID},
		{EntityParkingService, cols.ParkingServiceID},
		{EntityBulkService, cols.BulkServiceID},
	}

	var ref EntityRef
	for _, c := range candidates {
		if c.id == nil {
			continue
		}
		if !ref.IsZero() {
			return EntityRef{}, fmt.Errorf("only one entity reference may be set, got %s and %s", ref.Type, c.t)
		}
		ref = EntityRef{Type: c.t, ID: *c.id}
	}
	return ref, nil
}
